package search

import (
	"strings"

	"songshare/internal/song"
	"songshare/internal/textmatch"
)

// Source weights (§4.3).
const (
	sourceWeightPrimary    = 15
	sourceWeightBroad      = 8
	sourceWeightFallback   = 5
	sourceWeightLocalIndex = 20
)

// Tier point values and bonuses (§4.3).
const (
	pointsExact      = 260
	pointsStartsWith = 200
	pointsContains   = 140
	pointsFuzzy      = 80

	bonusNameTerm    = 20
	bonusArtistTerm  = 13
	bonusAlbumTerm   = 10
	bonusFuzzyToken  = 6
	languageHintHit  = 18
	languageHintMiss = -4
	preferredHit     = 28
	preferredMiss    = -2
	variantPenalty   = 10
	fuzzyTierPenalty = 10
)

// knownLanguageNames is the small vocabulary scoreSongMatch checks query
// tokens against to detect a language hint (§4.3). Keyed by the token a
// user would type; value is the normalized language code stored on Song.
var knownLanguageNames = map[string]string{
	"english": "english", "hindi": "hindi", "tamil": "tamil",
	"telugu": "telugu", "punjabi": "punjabi", "spanish": "spanish",
	"french": "french", "german": "german", "korean": "korean",
	"japanese": "japanese", "marathi": "marathi", "bengali": "bengali",
}

// candidate is a scored, tiered Song produced by scoreSongMatch, kept in
// a ranked map during the upstream fan-out loop (§4.3 addRankedSongs).
type candidate struct {
	song  *song.Song
	tier  textmatch.Tier
	score float64
}

// scoreSongMatch implements §4.3's scoreSongMatch: tier selection, bonus
// stacking, language adjustments, source weight and variant-index
// penalty. Returns (nil, false) when the Song is rejected.
func scoreSongMatch(s *song.Song, normQuery, compactQuery string, queryTokens []string, source string, variantIndex int, preferredLanguages map[string]bool) (*candidate, bool) {
	name := textmatch.Normalize(s.Name)
	artists := s.ArtistNames()
	haystack := textmatch.Haystack(s.Name, artists, s.Album.Name)
	compactName := textmatch.Compact(name)
	compactHaystack := textmatch.Compact(haystack)

	haystackTokens := textmatch.Tokenize(haystack)
	tokenSet := make(map[string]bool, len(haystackTokens))
	for _, t := range haystackTokens {
		tokenSet[t] = true
	}
	matched := 0
	for _, qt := range queryTokens {
		if tokenSet[qt] || textmatch.FuzzyTokenHit(qt, haystackTokens) {
			matched++
		}
	}

	tier := textmatch.ClassifyTier(name, compactName, haystack, compactHaystack, normQuery, compactQuery, matched, len(queryTokens))
	if tier == textmatch.TierNone {
		return nil, false
	}

	var score float64
	switch tier {
	case textmatch.TierExact:
		score = pointsExact
	case textmatch.TierStartsWith:
		score = pointsStartsWith
	case textmatch.TierContains:
		score = pointsContains
	case textmatch.TierFuzzy:
		score = pointsFuzzy - fuzzyTierPenalty
	}

	termMatches := 0
	lowerName := name
	lowerAlbum := textmatch.Normalize(s.Album.Name)
	lowerArtists := make([]string, len(artists))
	for i, a := range artists {
		lowerArtists[i] = textmatch.Normalize(a)
	}

	for _, qt := range queryTokens {
		switch {
		case strings.Contains(lowerName, qt):
			score += bonusNameTerm
			termMatches++
		case containsAny(lowerArtists, qt):
			score += bonusArtistTerm
			termMatches++
		case lowerAlbum != "" && strings.Contains(lowerAlbum, qt):
			score += bonusAlbumTerm
			termMatches++
		case textmatch.FuzzyTokenHit(qt, haystackTokens):
			score += bonusFuzzyToken
			termMatches++
		}
	}

	if len(queryTokens) >= 2 && termMatches == 0 && tier > textmatch.TierContains {
		return nil, false
	}

	if hintLang, ok := detectLanguageHint(queryTokens); ok {
		if s.Language != "" && s.Language == hintLang {
			score += languageHintHit
		} else {
			score += languageHintMiss
		}
	}

	if len(preferredLanguages) > 0 {
		if preferredLanguages[s.Language] {
			score += preferredHit
		} else {
			score += preferredMiss
		}
	}

	score += sourceWeightFor(source)
	score -= float64(variantIndex) * variantPenalty

	return &candidate{song: s, tier: tier, score: score}, true
}

func sourceWeightFor(source string) float64 {
	switch source {
	case "primary":
		return sourceWeightPrimary
	case "broad":
		return sourceWeightBroad
	case "fallback":
		return sourceWeightFallback
	case "local":
		return sourceWeightLocalIndex
	default:
		return 0
	}
}

func detectLanguageHint(queryTokens []string) (string, bool) {
	for _, t := range queryTokens {
		if lang, ok := knownLanguageNames[t]; ok {
			return lang, true
		}
	}
	return "", false
}

func containsAny(haystacks []string, needle string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}

// rankedSet accumulates scored candidates keyed by song id across the
// upstream fan-out loop, keeping the better (tier, score) pair on
// collision (§4.3 dedup rule, §8 dedup invariant).
type rankedSet struct {
	byID map[string]*candidate
}

func newRankedSet() *rankedSet {
	return &rankedSet{byID: make(map[string]*candidate)}
}

// addRankedSongs scores and merges a batch of upstream/local Songs from
// one source at one variant index into the set.
func (r *rankedSet) addRankedSongs(songs []*song.Song, normQuery, compactQuery string, queryTokens []string, source string, variantIndex int, preferredLanguages map[string]bool) {
	for _, s := range songs {
		if !s.Valid() {
			continue
		}
		cand, ok := scoreSongMatch(s, normQuery, compactQuery, queryTokens, source, variantIndex, preferredLanguages)
		if !ok {
			continue
		}
		existing, has := r.byID[s.ID]
		if !has || better(cand, existing) {
			r.byID[s.ID] = cand
		}
	}
}

// better reports whether a should replace b: lower tier wins; ties break
// on higher score.
func better(a, b *candidate) bool {
	if a.tier != b.tier {
		return a.tier < b.tier
	}
	return a.score > b.score
}

// hasExact reports whether any candidate currently holds TierExact.
func (r *rankedSet) hasExact() bool {
	for _, c := range r.byID {
		if c.tier == textmatch.TierExact {
			return true
		}
	}
	return false
}

func (r *rankedSet) len() int {
	return len(r.byID)
}

// sorted returns the ranked set as Songs ordered by (tier asc, score
// desc), truncated to limit, each Song annotated with nothing extra —
// ranking annotations belong to the reranker, not the search engine.
func (r *rankedSet) sorted(limit int) []*song.Song {
	cands := make([]*candidate, 0, len(r.byID))
	for _, c := range r.byID {
		cands = append(cands, c)
	}
	sortCandidates(cands)
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]*song.Song, len(cands))
	for i, c := range cands {
		out[i] = c.song
	}
	return out
}

func sortCandidates(cands []*candidate) {
	// Stable insertion sort is fine at these sizes (≤ a few hundred
	// candidates per request) and keeps the deterministic tie-break
	// below easy to read, mirroring the teacher's ranking.go style.
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && candidateLess(cands[j], cands[j-1]); j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}
}

// candidateLess orders a before b: lower tier first, then higher score,
// then deterministic tie-breakers (name, first artist, album, id) so
// ordering never depends on map iteration order (§8 determinism).
func candidateLess(a, b *candidate) bool {
	if a.tier != b.tier {
		return a.tier < b.tier
	}
	if a.score != b.score {
		return a.score > b.score
	}
	if a.song.Name != b.song.Name {
		return a.song.Name < b.song.Name
	}
	aArtist, bArtist := firstArtist(a.song), firstArtist(b.song)
	if aArtist != bArtist {
		return aArtist < bArtist
	}
	if a.song.Album.Name != b.song.Album.Name {
		return a.song.Album.Name < b.song.Album.Name
	}
	return a.song.ID < b.song.ID
}

func firstArtist(s *song.Song) string {
	if len(s.Artists.Primary) == 0 {
		return ""
	}
	return s.Artists.Primary[0].Name
}
