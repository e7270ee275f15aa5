package rerank

import (
	"context"
	"math"
	"sort"

	"songshare/internal/config"
	"songshare/internal/profile"
	"songshare/internal/song"
	"songshare/internal/textmatch"
)

// Options configure one rerank call (§4.4 contract).
type Options struct {
	Query              string
	PreferredLanguages []string
	Mode               string
}

// Reranker is the Personalized Reranker: a profile cache in front of the
// Activity & Profile Store, plus the embedding/feature/neural pipeline
// that blends a rule score with the fixed-weight head's output.
type Reranker struct {
	store        profile.Store
	profileCache *profileCache
}

// New builds a Reranker over store.
func New(store profile.Store) *Reranker {
	return &Reranker{store: store, profileCache: newProfileCache(store)}
}

// Rerank reorders songs for uid and annotates each with its `_ranking`
// score. Empty uid or an empty song list pass through unchanged (§4.4).
func (r *Reranker) Rerank(ctx context.Context, uid string, songs []*song.Song, opts Options) ([]*song.Song, error) {
	if uid == "" || len(songs) == 0 {
		return songs, nil
	}

	p, err := r.profileCache.get(ctx, uid)
	if err != nil {
		return nil, err
	}

	preferred := make(map[string]bool, len(opts.PreferredLanguages))
	for _, l := range opts.PreferredLanguages {
		preferred[l] = true
	}
	queryTokens := textmatch.Tokenize(textmatch.Normalize(opts.Query))
	userVec := userEmbedding(p)

	type scored struct {
		song  *song.Song
		final float64
	}
	weights := config.GetRankingConfig()
	out := make([]scored, len(songs))
	n := len(songs)
	for i, s := range songs {
		f := computeFeatures(s, i, n, userVec, preferred, queryTokens, p)
		rule := clamp01(weights.RuleTextRankWeight*f.textRank +
			weights.RulePreferenceWeight*((f.embeddingSimilarity+f.language+f.artist)/3) +
			weights.RulePopularityWeight*f.popularity +
			weights.RuleInteractionWeight*f.interaction)
		nn := neuralScore(f)
		final := clamp01(rule)*weights.FinalRuleWeight + nn*weights.FinalNeuralWeight

		cp := s.Clone()
		cp.Ranking = &song.Ranking{
			FinalScore:       round4(final),
			TextRankScore:    round4(f.textRank),
			PreferenceMatch:  round4((f.language + f.artist) / 2),
			PopularityScore:  round4(f.popularity),
			InteractionScore: round4(f.interaction),
			NeuralScore:      round4(nn),
		}
		out[i] = scored{song: cp, final: final}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].final > out[j].final })

	result := make([]*song.Song, len(out))
	for i, o := range out {
		result[i] = o.song
	}
	return result, nil
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
