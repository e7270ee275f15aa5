package recommend

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"songshare/internal/profile"
	"songshare/internal/rerank"
	"songshare/internal/search"
	"songshare/internal/song"
)

const maxNextTrackLimit = 20

// CurrentSong is the client-supplied "now playing" context for next-track
// mode (§6 POST /api/recommendations/next body). It carries fields, like
// Genre, that the normalized song.Song record never holds because no
// upstream catalog exposes genre on a Song (§3's Song shape has none) —
// only the playing client knows it.
type CurrentSong struct {
	ID          string
	Title       string
	Language    string
	Genre       string
	ArtistIDs   []string
	ArtistNames []string
	AlbumID     string
	AlbumName   string
	Year        *int
	Popularity  *float64
}

func (c *CurrentSong) thin() bool {
	return c == nil || (c.Language == "" && len(c.ArtistIDs) == 0 && len(c.ArtistNames) == 0 && c.AlbumID == "")
}

// GenerateNextTrack is the §4.5 next-track algorithm: resolve the playing
// song, build an exclusion set from recent history, synthesize seed
// queries, fan out, apply hard playback-continuity filters, pre-score,
// then rerank the top 4*limit candidates.
func (g *Generator) GenerateNextTrack(ctx context.Context, uid string, current *CurrentSong, limit int) ([]*song.Song, error) {
	if limit <= 0 {
		limit = maxNextTrackLimit
	}
	if limit > maxNextTrackLimit {
		limit = maxNextTrackLimit
	}

	current = g.enrichCurrentSong(ctx, current)

	exclude := g.buildExclusionSet(ctx, uid, current.ID)

	seeds := buildNextTrackSeeds(current)

	candidates := g.fanOutSeeds(ctx, seeds, search.Options{PreferredLanguages: nonEmpty(current.Language), WaitForFresh: false})

	merged := map[string]*song.Song{}
	order := make([]string, 0, 256)
	for _, list := range candidates {
		for _, s := range list {
			if !s.Valid() {
				continue
			}
			if _, ok := merged[s.ID]; ok {
				continue
			}
			if !passesNextTrackFilters(s, current, exclude) {
				continue
			}
			merged[s.ID] = s
			order = append(order, s.ID)
		}
	}

	type scored struct {
		song *song.Song
		rule float64
	}
	scoredList := make([]scored, 0, len(order))
	for _, id := range order {
		s := merged[id]
		scoredList = append(scoredList, scored{song: s, rule: nextTrackRuleScore(s, current)})
	}
	sort.SliceStable(scoredList, func(i, j int) bool { return scoredList[i].rule > scoredList[j].rule })

	topN := 4 * limit
	if len(scoredList) > topN {
		scoredList = scoredList[:topN]
	}

	songs := make([]*song.Song, len(scoredList))
	ruleByID := make(map[string]float64, len(scoredList))
	for i, sc := range scoredList {
		songs[i] = sc.song
		ruleByID[sc.song.ID] = sc.rule
	}

	reranked, err := g.reranker.Rerank(ctx, uid, songs, rerank.Options{PreferredLanguages: nonEmpty(current.Language), Mode: "next_track"})
	if err != nil {
		slog.Warn("recommend: next-track reranker failed, using rule order", "uid", uid, "error", err)
		reranked = songs
	}

	for _, s := range reranked {
		s.NextReason = nextReason(s, current, ruleByID[s.ID])
	}

	if len(reranked) > limit {
		reranked = reranked[:limit]
	}
	return reranked, nil
}

// enrichCurrentSong fills missing fields from the catalog when the
// client-supplied context is thin (§4.5 step 1). Lookup failure is
// ignored; the original context is used as-is.
func (g *Generator) enrichCurrentSong(ctx context.Context, current *CurrentSong) *CurrentSong {
	if current == nil {
		current = &CurrentSong{}
	}
	if !current.thin() || current.ID == "" || g.catalog == nil {
		return current
	}
	resolved, err := g.catalog.SongByID(ctx, current.ID)
	if err != nil || resolved == nil {
		return current
	}
	cp := *current
	if cp.Title == "" {
		cp.Title = resolved.Name
	}
	if cp.Language == "" {
		cp.Language = resolved.Language
	}
	if len(cp.ArtistIDs) == 0 {
		cp.ArtistIDs = resolved.ArtistIDs()
	}
	if len(cp.ArtistNames) == 0 {
		cp.ArtistNames = resolved.ArtistNames()
	}
	if cp.AlbumID == "" {
		cp.AlbumID = resolved.Album.ID
	}
	if cp.AlbumName == "" {
		cp.AlbumName = resolved.Album.Name
	}
	if cp.Year == nil {
		cp.Year = resolved.Year
	}
	if cp.Popularity == nil {
		cp.Popularity = resolved.Popularity
	}
	return &cp
}

// buildExclusionSet is the §4.5 step-2 recent-exclusion set: last 40
// plays union last 40 skips union the currently playing song's id.
func (g *Generator) buildExclusionSet(ctx context.Context, uid, currentID string) map[string]bool {
	var (
		wg                     sync.WaitGroup
		plays, skips           []profile.ActivityEvent
		playsErr, skipsErr     error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		plays, playsErr = g.store.History(ctx, uid, profile.EventPlay, 40)
	}()
	go func() {
		defer wg.Done()
		skips, skipsErr = g.store.History(ctx, uid, profile.EventSkip, 40)
	}()
	wg.Wait()
	if playsErr != nil {
		slog.Warn("recommend: next-track recent plays fetch failed", "uid", uid, "error", playsErr)
	}
	if skipsErr != nil {
		slog.Warn("recommend: next-track recent skips fetch failed", "uid", uid, "error", skipsErr)
	}

	excl := map[string]bool{}
	if currentID != "" {
		excl[currentID] = true
	}
	for _, e := range plays {
		if e.SongID != "" {
			excl[e.SongID] = true
		}
	}
	for _, e := range skips {
		if e.SongID != "" {
			excl[e.SongID] = true
		}
	}
	return excl
}

// buildNextTrackSeeds is §4.5 step 3, capped at 6 entries.
func buildNextTrackSeeds(current *CurrentSong) []string {
	lang := current.Language
	genre := current.Genre
	candidates := []string{}
	if lang != "" && genre != "" {
		candidates = append(candidates, "Top "+lang+" "+genre, lang+" "+genre)
	}
	if lang != "" {
		candidates = append(candidates, "Top "+lang, "Latest "+lang, lang)
	}
	if genre != "" {
		candidates = append(candidates, "Top "+genre)
	}
	if current.Title != "" {
		candidates = append(candidates, current.Title)
	}
	if len(candidates) == 0 {
		return []string{"Top Hindi songs"}
	}
	if len(candidates) > 6 {
		candidates = candidates[:6]
	}
	return candidates
}

// passesNextTrackFilters is §4.5 step 5: every hard constraint must hold.
func passesNextTrackFilters(s *song.Song, current *CurrentSong, exclude map[string]bool) bool {
	if exclude[s.ID] {
		return false
	}
	if current.Language != "" && s.Language != current.Language {
		return false
	}
	if artistSetsOverlap(s, current) {
		return false
	}
	if current.AlbumID != "" && s.Album.ID == current.AlbumID {
		return false
	}
	if current.AlbumName != "" && strings.EqualFold(s.Album.Name, current.AlbumName) {
		return false
	}
	if current.Title != "" && song.TitleSupersetOrEqual(s.Name, current.Title) {
		return false
	}
	return true
}

func artistSetsOverlap(s *song.Song, current *CurrentSong) bool {
	ids := make(map[string]bool, len(current.ArtistIDs))
	for _, id := range current.ArtistIDs {
		ids[id] = true
	}
	names := make(map[string]bool, len(current.ArtistNames))
	for _, n := range current.ArtistNames {
		names[strings.ToLower(n)] = true
	}
	for _, a := range s.Artists.Primary {
		if a.ID != "" && ids[a.ID] {
			return true
		}
		if names[strings.ToLower(a.Name)] {
			return true
		}
	}
	return false
}

// nextTrackRuleScore is §4.5 step 6.
func nextTrackRuleScore(s *song.Song, current *CurrentSong) float64 {
	score := 0.0
	if current.Language != "" && s.Language == current.Language {
		score += 120
	}
	// No genre field on the normalized Song; a partial match credit is
	// given when the candidate's title mentions the current genre, the
	// only genre-adjacent signal a Song carries post-normalization.
	if current.Genre != "" {
		if strings.Contains(strings.ToLower(s.Name), strings.ToLower(current.Genre)) {
			score += 30
		}
	}
	score += 40 * s.PopularityOr(0.45)
	if s.Year != nil {
		switch {
		case *s.Year >= 2020:
			score += 8
		case *s.Year >= 2015:
			score += 4
		}
	}
	return score
}

func nextReason(s *song.Song, current *CurrentSong, rule float64) string {
	reasons := make([]string, 0, 3)
	if current.Language != "" && s.Language == current.Language {
		reasons = append(reasons, "same language")
	}
	if s.Year != nil && *s.Year >= 2020 {
		reasons = append(reasons, "recent release")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "similar to "+current.Title)
	}
	return strings.Join(reasons, ", ") + " (score " + strconv.FormatFloat(rule, 'f', 0, 64) + ")"
}

func nonEmpty(lang string) []string {
	if lang == "" {
		return nil
	}
	return []string{lang}
}
