// Package rerank implements the Personalized Reranker (§4.4): a hashed-
// projection user/song embedding, eight clamped per-song features, a
// fixed-weight feed-forward head, and the rule/neural blend that
// reorders one user's candidate Songs. Grounded on the teacher's
// internal/scoring/relevance_scorer.go for the clamped, bucketed scoring
// style and internal/config/ranking.go for the hot-reloadable tunable-
// weight pattern the blend weights borrow.
package rerank

import (
	"hash/fnv"
	"math"
	"strconv"

	"songshare/internal/profile"
	"songshare/internal/song"
	"songshare/internal/textmatch"
)

// embeddingDim is the fixed hashed-projection embedding width (§4.4).
const embeddingDim = 16

// signedHash maps key to a value in [-97, 97], the symmetric range the
// "/97" normalization in the spec's formula expects. fnv32a gives a
// stable, allocation-free hash; no library in the pack implements
// hashed-feature embeddings, so this is hand-rolled per DESIGN.md.
func signedHash(key string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return float64(int64(h.Sum32()%195) - 97)
}

// addContribution adds token t's weighted hashed projection into vec.
func addContribution(vec *[embeddingDim]float64, t string, w float64) {
	for i := 0; i < embeddingDim; i++ {
		vec[i] += (signedHash(t + "#" + strconv.Itoa(i)) / 97) * w
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func l2Normalize(vec *[embeddingDim]float64) {
	sumSq := 0.0
	for _, v := range vec {
		sumSq += v * v
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range vec {
		vec[i] /= norm
	}
}

// userEmbedding builds the §4.4 hashed-projection embedding from a
// RealtimeProfile: favorite artists, language/artist affinities, recent
// search terms, and recent song interactions, each at its documented
// weight.
func userEmbedding(p *profile.RealtimeProfile) [embeddingDim]float64 {
	var vec [embeddingDim]float64
	if p == nil {
		return vec
	}

	for _, a := range p.FavoriteArtists {
		addContribution(&vec, "fav_artist:"+a.Name, 2.4)
	}
	for lang, a := range p.LanguageAffinity {
		addContribution(&vec, "language:"+lang, 0.9+clamp(a, -2, 8)*0.08)
	}
	for artist, a := range p.ArtistAffinity {
		addContribution(&vec, "artist:"+artist, clamp(a, -4, 10)*0.25)
	}

	terms := p.SearchTerms
	if len(terms) > 20 {
		terms = terms[:20]
	}
	for i, term := range terms {
		w := 1 / (1 + float64(i)*0.45)
		for _, tok := range textmatch.Tokenize(textmatch.Normalize(term)) {
			addContribution(&vec, tok, w)
		}
	}

	interactions := make([]recencyInteraction, 0, len(p.SongInteractions))
	for id, si := range p.SongInteractions {
		interactions = append(interactions, recencyInteraction{id: id, SongInteraction: si})
	}
	sortInteractionsByRecency(interactions)
	if len(interactions) > 200 {
		interactions = interactions[:200]
	}
	for _, in := range interactions {
		addContribution(&vec, "song:"+in.id, in.Affinity*0.15)
		if in.Artist != "" {
			addContribution(&vec, "artist:"+in.Artist, in.Affinity*0.08)
		}
		if in.Language != "" {
			addContribution(&vec, "language:"+in.Language, in.Affinity*0.06)
		}
	}

	l2Normalize(&vec)
	return vec
}

// songEmbedding builds a Song's embedding "identically" (§4.4): every
// contribution channel the profile embedding uses, sourced from the
// Song's own fields at a neutral weight of 1.0 rather than an
// activity-derived affinity. A Song's artist contributes under both the
// `artist:` and `fav_artist:` token namespaces — it cannot know whether
// it happens to be the listener's favorite, so it surfaces on both
// channels and lets the dot product pick up whichever one the user's
// embedding actually populated. Title tokens use the same recency-decay
// weight the profile applies to recent search terms (an Open Question
// resolution — see DESIGN.md).
func songEmbedding(s *song.Song) [embeddingDim]float64 {
	var vec [embeddingDim]float64
	if s == nil {
		return vec
	}
	for _, a := range s.Artists.Primary {
		addContribution(&vec, "artist:"+a.Name, 1.0)
		addContribution(&vec, "fav_artist:"+a.Name, 1.0)
	}
	if s.Language != "" {
		addContribution(&vec, "language:"+s.Language, 1.0)
	}
	for i, tok := range textmatch.Tokenize(textmatch.Normalize(s.Name)) {
		w := 1 / (1 + float64(i)*0.45)
		addContribution(&vec, tok, w)
	}
	l2Normalize(&vec)
	return vec
}

// similarity is the §4.4 cosine-like comparison, clamped to [0,1].
func similarity(a, b [embeddingDim]float64) float64 {
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return clamp((dot+1)/2, 0, 1)
}

// recencyInteraction pairs a song id with its interaction record so the
// most-recent-200 cap can sort without a parallel id slice.
type recencyInteraction struct {
	id string
	profile.SongInteraction
}

func sortInteractionsByRecency(in []recencyInteraction) {
	for i := 1; i < len(in); i++ {
		for j := i; j > 0 && in[j].LastPlayed.After(in[j-1].LastPlayed); j-- {
			in[j], in[j-1] = in[j-1], in[j]
		}
	}
}
