package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songshare/internal/profile"
	"songshare/internal/song"
)

func TestRerank_EmptyUID_PassThrough(t *testing.T) {
	r := New(profile.NewMemoryStore())
	songs := []*song.Song{{ID: "s1", Name: "Track"}}
	out, err := r.Rerank(context.Background(), "", songs, Options{})
	require.NoError(t, err)
	assert.Equal(t, songs, out)
}

func TestRerank_EmptySongs_PassThrough(t *testing.T) {
	r := New(profile.NewMemoryStore())
	out, err := r.Rerank(context.Background(), "u1", nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

// TestRerank_FavoriteArtistPromotesSong mirrors the spec's concrete
// "reranker blending" scenario: upstream order puts X first, but the
// user's favorite artist and preferred language belong to Y.
func TestRerank_FavoriteArtistPromotesSong(t *testing.T) {
	store := profile.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SavePreferences(ctx, "u1", &profile.UserPreferences{
		FavoriteArtists: []profile.FavoriteArtist{{ID: "y-artist", Name: "Y Artist"}},
	}))

	x := &song.Song{ID: "x1", Name: "Unrelated Track", Language: "spanish",
		Artists: song.Artists{Primary: []song.Artist{{ID: "x-artist", Name: "X Artist"}}}}
	y := &song.Song{ID: "y1", Name: "Preferred Track", Language: "hindi",
		Artists: song.Artists{Primary: []song.Artist{{ID: "y-artist", Name: "Y Artist"}}}}

	r := New(store)
	out, err := r.Rerank(ctx, "u1", []*song.Song{x, y}, Options{PreferredLanguages: []string{"hindi"}})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "y1", out[0].ID, "favorite-artist + preferred-language Song must rank first")
	assert.Equal(t, "x1", out[1].ID)

	for _, s := range out {
		require.NotNil(t, s.Ranking)
	}
}

func TestRerank_AttachesRoundedRanking(t *testing.T) {
	store := profile.NewMemoryStore()
	r := New(store)
	songs := []*song.Song{{ID: "s1", Name: "Track One"}, {ID: "s2", Name: "Track Two"}}
	out, err := r.Rerank(context.Background(), "u1", songs, Options{Query: "track"})
	require.NoError(t, err)
	for _, s := range out {
		require.NotNil(t, s.Ranking)
		assert.GreaterOrEqual(t, s.Ranking.FinalScore, 0.0)
		assert.LessOrEqual(t, s.Ranking.FinalScore, 1.0)
	}
}

func TestNeuralHead_WeightShapesValid(t *testing.T) {
	assert.NoError(t, VerifyWeightShapes())
}

func TestTextRankScore_Bounds(t *testing.T) {
	assert.Equal(t, 1.0, textRankScore(0, 1))
	assert.Equal(t, 1.0, textRankScore(0, 5))
	assert.Equal(t, 0.0, textRankScore(4, 5))
}
