package rerank

import (
	"math"

	"songshare/internal/profile"
	"songshare/internal/song"
	"songshare/internal/textmatch"
)

// features holds the 8 clamped [0,1] inputs to the neural head, in the
// fixed order the weight matrices expect (§4.4).
type features struct {
	textRank            float64
	embeddingSimilarity float64
	language            float64
	artist              float64
	popularity          float64
	interaction         float64
	skipRisk            float64
	queryIntent         float64
}

func (f features) vector() [8]float64 {
	return [8]float64{f.textRank, f.embeddingSimilarity, f.language, f.artist, f.popularity, f.interaction, f.skipRisk, f.queryIntent}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// textRankScore preserves upstream order as a prior: the first candidate
// scores 1, the last scores 0. A single-candidate list scores 1.
func textRankScore(index, n int) float64 {
	if n <= 1 {
		return 1
	}
	return 1 - float64(index)/float64(n-1)
}

func languageScore(s *song.Song, preferred map[string]bool, p *profile.RealtimeProfile) float64 {
	match := len(preferred) > 0 && preferred[s.Language]
	base := 0.25
	divisor := 10.0
	if match {
		base = 1.0
		divisor = 12.0
	}
	affinity := 0.0
	if p != nil {
		affinity = p.LanguageAffinity[s.Language]
	}
	adj := math.Min(0.35, math.Abs(affinity)/divisor)
	if affinity < 0 {
		adj = -adj
	}
	return clamp(base+adj, 0, 1)
}

func artistScore(s *song.Song, p *profile.RealtimeProfile) float64 {
	base := 0.1
	favHits := 0
	if p != nil {
		favSet := make(map[string]bool, len(p.FavoriteArtists))
		for _, fa := range p.FavoriteArtists {
			favSet[fa.Name] = true
		}
		for _, a := range s.ArtistNames() {
			if favSet[a] {
				favHits++
			}
		}
	}
	score := base + float64(favHits)*0.45

	affinity := 0.0
	if p != nil && len(s.Artists.Primary) > 0 {
		affinity = p.ArtistAffinity[s.Artists.Primary[0].Name]
	}
	divisor := 12.0
	if favHits > 0 {
		divisor = 14.0
	}
	adj := math.Min(0.35, math.Abs(affinity)/divisor)
	if affinity < 0 {
		adj = -adj
	}
	return clamp(score+adj, 0, 1)
}

func popularityScore(s *song.Song) float64 {
	if s.Popularity == nil {
		return 0.45
	}
	return clamp(math.Log10(*s.Popularity+1)/3.2, 0, 1)
}

func interactionScore(s *song.Song, p *profile.RealtimeProfile) float64 {
	if p == nil {
		return 0.35
	}
	in, ok := p.SongInteractions[s.ID]
	if !ok {
		return 0.35
	}
	return sigmoid(in.Affinity * 0.35)
}

func skipRiskScore(s *song.Song, p *profile.RealtimeProfile) float64 {
	if p == nil {
		return 0.2
	}
	in, ok := p.SongInteractions[s.ID]
	if !ok || in.PlayCount+in.SkipCount == 0 {
		return 0.2
	}
	return float64(in.SkipCount) / float64(in.PlayCount+in.SkipCount)
}

func queryIntentScore(s *song.Song, queryTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	haystack := textmatch.Haystack(s.Name, s.ArtistNames(), "")
	hit := 0
	for _, qt := range queryTokens {
		if containsToken(haystack, qt) {
			hit++
		}
	}
	return float64(hit) / float64(len(queryTokens))
}

func containsToken(haystack, token string) bool {
	if token == "" {
		return false
	}
	for _, t := range textmatch.Tokenize(haystack) {
		if t == token {
			return true
		}
	}
	return false
}

// computeFeatures builds the full feature set for one (song, position)
// pair within a rerank call.
func computeFeatures(s *song.Song, index, n int, userVec [embeddingDim]float64, preferred map[string]bool, queryTokens []string, p *profile.RealtimeProfile) features {
	return features{
		textRank:            textRankScore(index, n),
		embeddingSimilarity: similarity(userVec, songEmbedding(s)),
		language:            languageScore(s, preferred, p),
		artist:              artistScore(s, p),
		popularity:          popularityScore(s),
		interaction:         interactionScore(s, p),
		skipRisk:            skipRiskScore(s, p),
		queryIntent:         queryIntentScore(s, queryTokens),
	}
}
