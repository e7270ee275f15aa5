// Package recommend implements the Recommendation Generator (§4.5): seed
// queries synthesized from preferences and recent activity, candidate
// collection fanned out through the Smart Search Engine, a rule-based
// pre-score, and a reranker pass blended with the rule score. Grounded on
// the lastfm-golang retrieval pack's internal/recommend/recommend.go
// (seed-then-fan-out-then-merge algorithm skeleton), adapted from
// last.fm artist similarity to this module's
// preference/activity seeds and Smart Search fan-out.
package recommend

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"

	"songshare/internal/apperr"
	"songshare/internal/catalog"
	"songshare/internal/config"
	"songshare/internal/profile"
	"songshare/internal/rerank"
	"songshare/internal/search"
	"songshare/internal/song"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	maxSeeds     = 15
)

// Generator is the Recommendation Generator. It composes the Smart
// Search Engine, the Personalized Reranker and the Activity & Profile
// Store; it owns none of their state.
type Generator struct {
	store    profile.Store
	search   *search.Engine
	reranker *rerank.Reranker
	catalog  catalog.Adapter // used only for next-track currentSong enrichment
}

// New builds a Recommendation Generator. catalogForLookup is the adapter
// used to enrich a thin currentSong in next-track mode (§4.5 step 1); any
// of the three catalog adapters wired into the search engine serves.
func New(store profile.Store, searchEngine *search.Engine, reranker *rerank.Reranker, catalogForLookup catalog.Adapter) *Generator {
	return &Generator{store: store, search: searchEngine, reranker: reranker, catalog: catalogForLookup}
}

// activitySnapshot holds the four concurrently-fetched activity signals
// general mode seeds itself from (§4.5 step 1).
type activitySnapshot struct {
	topArtists     []artistCount // by descending play count, capped at 10
	skippedIDs     map[string]bool
	recentSearches []string                // most recent first, capped at 10
	recentPlays    []profile.ActivityEvent // capped at 20
}

type artistCount struct {
	name  string
	plays int
}

func (g *Generator) fetchActivitySnapshot(ctx context.Context, uid string) activitySnapshot {
	var (
		wg                             sync.WaitGroup
		plays, skips, searches         []profile.ActivityEvent
		playsErr, skipsErr, searchesErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		plays, playsErr = g.store.History(ctx, uid, profile.EventPlay, 20)
	}()
	go func() {
		defer wg.Done()
		skips, skipsErr = g.store.History(ctx, uid, profile.EventSkip, 100)
	}()
	go func() {
		defer wg.Done()
		searches, searchesErr = g.store.History(ctx, uid, profile.EventSearch, 10)
	}()
	wg.Wait()

	if playsErr != nil {
		slog.Warn("recommend: recent plays fetch failed", "uid", uid, "error", playsErr)
	}
	if skipsErr != nil {
		slog.Warn("recommend: recent skips fetch failed", "uid", uid, "error", skipsErr)
	}
	if searchesErr != nil {
		slog.Warn("recommend: recent searches fetch failed", "uid", uid, "error", searchesErr)
	}

	tally := map[string]int{}
	for _, e := range plays {
		if e.Artist != "" {
			tally[e.Artist]++
		}
	}
	artists := make([]artistCount, 0, len(tally))
	for name, n := range tally {
		artists = append(artists, artistCount{name: name, plays: n})
	}
	sort.SliceStable(artists, func(i, j int) bool { return artists[i].plays > artists[j].plays })
	if len(artists) > 10 {
		artists = artists[:10]
	}

	skipSet := make(map[string]bool, len(skips))
	for _, e := range skips {
		if e.SongID != "" {
			skipSet[e.SongID] = true
		}
	}

	terms := make([]string, 0, len(searches))
	for _, e := range searches {
		if e.Query != "" {
			terms = append(terms, e.Query)
		}
	}

	return activitySnapshot{topArtists: artists, skippedIDs: skipSet, recentSearches: terms, recentPlays: plays}
}

// buildSeedQueries assembles the §4.5 step-2 seed set: favorite artists,
// top-played artists, recent searches, falling back through recently-
// played artists and preferred-language defaults when sparse.
func buildSeedQueries(prefs *profile.UserPreferences, snap activitySnapshot) []string {
	seeds := make([]string, 0, maxSeeds)
	seen := map[string]bool{}
	add := func(q string) {
		if q == "" || seen[q] {
			return
		}
		seen[q] = true
		seeds = append(seeds, q)
	}

	if prefs != nil {
		for i, a := range prefs.FavoriteArtists {
			if i >= 5 {
				break
			}
			add(a.Name)
		}
	}
	for i, a := range snap.topArtists {
		if i >= 5 {
			break
		}
		add(a.name)
	}
	for i, q := range snap.recentSearches {
		if i >= 5 {
			break
		}
		add(q)
	}

	if len(seeds) < 3 {
		for _, e := range snap.recentPlays {
			if e.Artist != "" {
				add(e.Artist)
			}
		}
	}

	if len(seeds) == 0 && prefs != nil {
		for i, lang := range prefs.Languages {
			if i >= 3 {
				break
			}
			add("Top " + lang + " songs")
		}
	}

	if len(seeds) == 0 {
		add("Top Hindi songs")
	}

	if len(seeds) > maxSeeds {
		seeds = seeds[:maxSeeds]
	}
	return seeds
}

// candidate tracks a merged Song alongside its rule score while the
// pipeline accumulates and ranks.
type candidate struct {
	song *song.Song
	rule float64
}

// GenerateRecommendations is the §4.5 general-mode algorithm. limit <= 0
// defaults to 20; values are clamped to [1, 100].
func (g *Generator) GenerateRecommendations(ctx context.Context, uid string, prefs *profile.UserPreferences, limit int) ([]*song.Song, error) {
	limit = clampLimit(limit)

	snap := g.fetchActivitySnapshot(ctx, uid)
	seeds := buildSeedQueries(prefs, snap)

	preferredLangs := []string{}
	if prefs != nil {
		preferredLangs = prefs.Languages
	}
	preferredSet := make(map[string]bool, len(preferredLangs))
	for _, l := range preferredLangs {
		preferredSet[l] = true
	}

	topArtistPlays := make(map[string]int, len(snap.topArtists))
	for _, a := range snap.topArtists {
		topArtistPlays[a.name] = a.plays
	}
	favoriteSet := map[string]bool{}
	if prefs != nil {
		for _, a := range prefs.FavoriteArtists {
			favoriteSet[a.Name] = true
		}
	}

	results := g.fanOutSeeds(ctx, seeds, search.Options{PreferredLanguages: preferredLangs})

	merged := map[string]*candidate{}
	order := make([]string, 0, 256)
	for _, list := range results {
		for _, s := range list {
			if !s.Valid() {
				continue
			}
			if _, ok := merged[s.ID]; ok {
				continue
			}
			rule := ruleScore(s, favoriteSet, topArtistPlays, snap.skippedIDs, preferredSet)
			merged[s.ID] = &candidate{song: s, rule: rule}
			order = append(order, s.ID)
		}
	}

	cands := make([]*candidate, 0, len(order))
	for _, id := range order {
		cands = append(cands, merged[id])
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].rule > cands[j].rule })

	if len(preferredLangs) > 0 {
		cands = partitionByLanguage(cands, preferredSet)
	}
	if len(cands) > 100 {
		cands = cands[:100]
	}

	songs := make([]*song.Song, len(cands))
	ruleByID := make(map[string]float64, len(cands))
	for i, c := range cands {
		songs[i] = c.song
		ruleByID[c.song.ID] = c.rule
	}

	reranked, err := g.reranker.Rerank(ctx, uid, songs, rerank.Options{PreferredLanguages: preferredLangs, Mode: "recommendations"})
	if err != nil {
		slog.Warn("recommend: reranker failed, falling back to rule-scored list", "uid", uid, "error", &apperr.RankerError{Stage: "recommendations", Err: err})
		reranked = songs
	}

	weights := config.GetRankingConfig()
	for _, s := range reranked {
		rule := ruleByID[s.ID]
		model := 0.0
		if s.Ranking != nil {
			model = s.Ranking.FinalScore
		}
		blended := round2(rule*weights.RecommendRuleWeight + model*100*weights.RecommendModelWeight)
		if s.Ranking == nil {
			s.Ranking = &song.Ranking{}
		}
		s.Ranking.FinalScore = blended
	}
	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Ranking.FinalScore > reranked[j].Ranking.FinalScore })

	if len(reranked) > limit {
		reranked = reranked[:limit]
	}
	return reranked, nil
}

// fanOutSeeds runs SmartSearch over every seed concurrently; a failing
// seed is logged and simply contributes no candidates (§4.5 step 3,
// Promise.allSettled-equivalent).
func (g *Generator) fanOutSeeds(ctx context.Context, seeds []string, opts search.Options) [][]*song.Song {
	out := make([][]*song.Song, len(seeds))
	var wg sync.WaitGroup
	wg.Add(len(seeds))
	for i, seed := range seeds {
		go func(i int, seed string) {
			defer wg.Done()
			songs, err := g.search.SmartSearch(ctx, seed, opts)
			if err != nil {
				slog.Warn("recommend: seed search failed", "seed", seed, "error", err)
				return
			}
			out[i] = songs
		}(i, seed)
	}
	wg.Wait()
	return out
}

// ruleScore implements §4.5 step 4's general-mode scoring.
func ruleScore(s *song.Song, favoriteArtists map[string]bool, topArtistPlays map[string]int, skipped map[string]bool, preferredLangs map[string]bool) float64 {
	score := 10.0
	for _, name := range s.ArtistNames() {
		if favoriteArtists[name] {
			score += 30
		}
		if plays, ok := topArtistPlays[name]; ok {
			score += 5 * float64(plays)
		}
	}
	if skipped[s.ID] {
		score -= 100
	}
	if len(preferredLangs) > 0 && preferredLangs[s.Language] {
		score += 10
	}
	return score
}

// partitionByLanguage stable-sorts candidates so every preferred-language
// song precedes every other song, without disturbing the rule-score
// order within each partition (§4.5 step 5).
func partitionByLanguage(cands []*candidate, preferred map[string]bool) []*candidate {
	in := make([]*candidate, 0, len(cands))
	out := make([]*candidate, 0, len(cands))
	for _, c := range cands {
		if preferred[c.song.Language] {
			in = append(in, c)
		} else {
			out = append(out, c)
		}
	}
	return append(in, out...)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
