package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songshare/internal/catalog"
	"songshare/internal/profile"
	"songshare/internal/rerank"
	"songshare/internal/search"
	"songshare/internal/song"
	"songshare/internal/songindex"
)

// fakeAdapter serves a fixed, query-independent catalog so recommend
// tests stay deterministic. The Smart Search Engine still scores that
// catalog against each seed query, so a song only reaches the generator
// when it matches some seed.
type fakeAdapter struct {
	songs []*song.Song
}

func (a *fakeAdapter) PrimarySongs(ctx context.Context, query string, page int) (*catalog.Page, error) {
	return &catalog.Page{Results: a.songs}, nil
}
func (a *fakeAdapter) FallbackSongs(ctx context.Context, query string) ([]*song.Song, error) {
	return nil, nil
}
func (a *fakeAdapter) BroadSearch(ctx context.Context, query string, page int) (*catalog.BroadResult, error) {
	return &catalog.BroadResult{Songs: a.songs}, nil
}
func (a *fakeAdapter) SongByID(ctx context.Context, id string) (*song.Song, error) {
	for _, s := range a.songs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}
func (a *fakeAdapter) AlbumByID(ctx context.Context, id string) (*catalog.Album, error) { return nil, nil }
func (a *fakeAdapter) AlbumsByQuery(ctx context.Context, query string) ([]*catalog.Album, error) {
	return nil, nil
}
func (a *fakeAdapter) ArtistsByQuery(ctx context.Context, query string) ([]*catalog.ArtistProfile, error) {
	return nil, nil
}
func (a *fakeAdapter) ArtistsByLanguage(ctx context.Context, language string) ([]*catalog.ArtistProfile, error) {
	return nil, nil
}
func (a *fakeAdapter) ArtistAlbums(ctx context.Context, artistID string, limit, page int) ([]*catalog.Album, error) {
	return nil, nil
}

func popf(v float64) *float64 { return &v }
func yearOf(y int) *int       { return &y }

func fixtureSongs() []*song.Song {
	return []*song.Song{
		{ID: "s1", Name: "Sunburn Anthem", Language: "hindi",
			Artists: song.Artists{Primary: []song.Artist{{ID: "a1", Name: "Favorite Artist"}}},
			Popularity: popf(80), Year: yearOf(2022)},
		{ID: "s2", Name: "Quiet Nights", Language: "hindi",
			Artists: song.Artists{Primary: []song.Artist{{ID: "a2", Name: "Other Artist"}}},
			Popularity: popf(40), Year: yearOf(2012)},
		{ID: "s3", Name: "Skipped Track", Language: "tamil",
			Artists: song.Artists{Primary: []song.Artist{{ID: "a3", Name: "Third Artist"}}},
			Popularity: popf(20)},
	}
}

func newTestGenerator(t *testing.T, songs []*song.Song, store profile.Store) *Generator {
	t.Helper()
	adapter := &fakeAdapter{songs: songs}
	idx := songindex.New(1000)
	engine := search.New(idx, adapter, adapter, adapter)
	rr := rerank.New(store)
	return New(store, engine, rr, adapter)
}

func TestGenerateRecommendations_RanksFavoriteArtistAbovePlain(t *testing.T) {
	store := profile.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SavePreferences(ctx, "u1", &profile.UserPreferences{
		Languages:       []string{"hindi"},
		FavoriteArtists: []profile.FavoriteArtist{{ID: "a1", Name: "Favorite Artist"}},
	}))

	gen := newTestGenerator(t, fixtureSongs(), store)
	out, err := gen.GenerateRecommendations(ctx, "u1", &profile.UserPreferences{
		Languages:       []string{"hindi"},
		FavoriteArtists: []profile.FavoriteArtist{{ID: "a1", Name: "Favorite Artist"}},
	}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	var favIdx, skippedIdx = -1, -1
	for i, s := range out {
		if s.ID == "s1" {
			favIdx = i
		}
		if s.ID == "s3" {
			skippedIdx = i
		}
	}
	require.GreaterOrEqual(t, favIdx, 0)
	if skippedIdx >= 0 {
		assert.Less(t, favIdx, skippedIdx)
	}
}

func TestGenerateRecommendations_RanksSkippedSongLast(t *testing.T) {
	store := profile.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.AppendActivity(ctx, "u1", profile.ActivityEvent{Type: profile.EventSkip, SongID: "s3"}))
	prefs := &profile.UserPreferences{
		Languages:       []string{"hindi"},
		FavoriteArtists: []profile.FavoriteArtist{{ID: "a1", Name: "Favorite Artist"}},
	}
	require.NoError(t, store.SavePreferences(ctx, "u1", prefs))

	gen := newTestGenerator(t, fixtureSongs(), store)
	out, err := gen.GenerateRecommendations(ctx, "u1", prefs, 10)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	skippedIdx := -1
	for i, s := range out {
		if s.ID == "s3" {
			skippedIdx = i
		}
	}
	if skippedIdx >= 0 {
		assert.Equal(t, len(out)-1, skippedIdx, "skipped song must rank last among returned candidates")
	}
}

func TestGenerateRecommendations_ClampsLimit(t *testing.T) {
	store := profile.NewMemoryStore()
	gen := newTestGenerator(t, fixtureSongs(), store)
	out, err := gen.GenerateRecommendations(context.Background(), "u1", &profile.UserPreferences{Languages: []string{"hindi"}}, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), defaultLimit)
}

func TestBuildSeedQueries_FallsBackToDefaultLanguageQuery(t *testing.T) {
	prefs := &profile.UserPreferences{Languages: []string{"tamil"}}
	seeds := buildSeedQueries(prefs, activitySnapshot{})
	require.Len(t, seeds, 1)
	assert.Equal(t, "Top tamil songs", seeds[0])
}

func TestBuildSeedQueries_FallsBackToTopHindi(t *testing.T) {
	seeds := buildSeedQueries(nil, activitySnapshot{})
	require.Len(t, seeds, 1)
	assert.Equal(t, "Top Hindi songs", seeds[0])
}

func TestGenerateNextTrack_FiltersSameArtistAndAlbum(t *testing.T) {
	store := profile.NewMemoryStore()
	ctx := context.Background()

	songs := []*song.Song{
		{ID: "now", Name: "Currently Playing", Language: "hindi", Album: song.Album{ID: "alb1", Name: "Album One"},
			Artists: song.Artists{Primary: []song.Artist{{ID: "art1", Name: "Same Artist"}}}},
		{ID: "same-artist", Name: "Another Cut", Language: "hindi",
			Artists: song.Artists{Primary: []song.Artist{{ID: "art1", Name: "Same Artist"}}}},
		{ID: "diff-lang", Name: "Different Language Track", Language: "tamil",
			Artists: song.Artists{Primary: []song.Artist{{ID: "art2", Name: "New Artist"}}}},
		{ID: "good", Name: "Fresh Pick", Language: "hindi", Popularity: popf(60), Year: yearOf(2021),
			Artists: song.Artists{Primary: []song.Artist{{ID: "art3", Name: "New Artist Two"}}}},
	}

	gen := newTestGenerator(t, songs, store)
	current := &CurrentSong{ID: "now", Title: "Currently Playing", Language: "hindi",
		ArtistIDs: []string{"art1"}, ArtistNames: []string{"Same Artist"}, AlbumID: "alb1", AlbumName: "Album One"}

	out, err := gen.GenerateNextTrack(ctx, "u1", current, 5)
	require.NoError(t, err)

	for _, s := range out {
		assert.NotEqual(t, "now", s.ID)
		assert.NotEqual(t, "same-artist", s.ID, "same-artist track must be filtered by artist overlap")
		assert.NotEqual(t, "diff-lang", s.ID, "different-language track must be filtered")
		assert.NotEmpty(t, s.NextReason)
	}
}

func TestGenerateNextTrack_EmptyResultFallsBackToDefaultSeed(t *testing.T) {
	store := profile.NewMemoryStore()
	seeds := buildNextTrackSeeds(&CurrentSong{})
	require.Equal(t, []string{"Top Hindi songs"}, seeds)
	_ = store
}

func TestNextTrackRuleScore_RewardsLanguageMatchAndRecency(t *testing.T) {
	current := &CurrentSong{Language: "hindi"}
	recent := &song.Song{Language: "hindi", Popularity: popf(50), Year: yearOf(2023)}
	stale := &song.Song{Language: "hindi", Popularity: popf(50), Year: yearOf(2010)}
	assert.Greater(t, nextTrackRuleScore(recent, current), nextTrackRuleScore(stale, current))
}
