package search

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songshare/internal/catalog"
	"songshare/internal/song"
	"songshare/internal/songindex"
)

// stubAdapter is a minimal catalog.Adapter test double; it only
// implements the operations the Smart Search Engine actually calls.
type stubAdapter struct {
	primaryCalls int32
	primaryFn    func(ctx context.Context, query string, page int) (*catalog.Page, error)
	broadFn      func(ctx context.Context, query string, page int) (*catalog.BroadResult, error)
	fallbackFn   func(ctx context.Context, query string) ([]*song.Song, error)
}

func (s *stubAdapter) PrimarySongs(ctx context.Context, query string, page int) (*catalog.Page, error) {
	atomic.AddInt32(&s.primaryCalls, 1)
	if s.primaryFn != nil {
		return s.primaryFn(ctx, query, page)
	}
	return &catalog.Page{}, nil
}
func (s *stubAdapter) FallbackSongs(ctx context.Context, query string) ([]*song.Song, error) {
	if s.fallbackFn != nil {
		return s.fallbackFn(ctx, query)
	}
	return nil, nil
}
func (s *stubAdapter) BroadSearch(ctx context.Context, query string, page int) (*catalog.BroadResult, error) {
	if s.broadFn != nil {
		return s.broadFn(ctx, query, page)
	}
	return &catalog.BroadResult{}, nil
}
func (s *stubAdapter) SongByID(ctx context.Context, id string) (*song.Song, error)     { return nil, nil }
func (s *stubAdapter) AlbumByID(ctx context.Context, id string) (*catalog.Album, error) { return nil, nil }
func (s *stubAdapter) AlbumsByQuery(ctx context.Context, q string) ([]*catalog.Album, error) {
	return nil, nil
}
func (s *stubAdapter) ArtistsByQuery(ctx context.Context, q string) ([]*catalog.ArtistProfile, error) {
	return nil, nil
}
func (s *stubAdapter) ArtistsByLanguage(ctx context.Context, l string) ([]*catalog.ArtistProfile, error) {
	return nil, nil
}
func (s *stubAdapter) ArtistAlbums(ctx context.Context, id string, limit, page int) ([]*catalog.Album, error) {
	return nil, nil
}

func believerSong() *song.Song {
	return &song.Song{
		ID:      "believer-1",
		Name:    "Imagine Dragons - Believer",
		Artists: song.Artists{Primary: []song.Artist{{ID: "id-imagine-dragons", Name: "Imagine Dragons"}}},
	}
}

func TestSmartSearch_FreshCacheHit_NoRepeatUpstreamFanout(t *testing.T) {
	primary := &stubAdapter{primaryFn: func(ctx context.Context, query string, page int) (*catalog.Page, error) {
		return &catalog.Page{Results: []*song.Song{believerSong()}}, nil
	}}
	e := New(songindex.New(100), primary, &stubAdapter{}, &stubAdapter{})

	ctx := context.Background()
	first, err := e.SmartSearch(ctx, "imagine dragons", Options{PreferredLanguages: []string{"english"}})
	require.NoError(t, err)
	require.NotEmpty(t, first)

	callsAfterFirst := atomic.LoadInt32(&primary.primaryCalls)
	require.Greater(t, callsAfterFirst, int32(0))

	second, err := e.SmartSearch(ctx, "imagine dragons", Options{PreferredLanguages: []string{"english"}})
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, callsAfterFirst, atomic.LoadInt32(&primary.primaryCalls), "second call within FRESH_TTL must not refetch upstream")
}

func TestSmartSearch_EmptyQuery_NoUpstreamCall(t *testing.T) {
	primary := &stubAdapter{}
	e := New(songindex.New(100), primary, &stubAdapter{}, &stubAdapter{})
	results, err := e.SmartSearch(context.Background(), "   ", Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int32(0), atomic.LoadInt32(&primary.primaryCalls))
}

func TestSmartSearch_StaleWhileRevalidate_SingleBackgroundRefresh(t *testing.T) {
	primary := &stubAdapter{primaryFn: func(ctx context.Context, query string, page int) (*catalog.Page, error) {
		time.Sleep(20 * time.Millisecond)
		return &catalog.Page{Results: []*song.Song{believerSong()}}, nil
	}}
	e := New(songindex.New(100), primary, &stubAdapter{}, &stubAdapter{})

	key := cacheKey("imagine dragons", nil)
	e.cache.put(context.Background(), key, []*song.Song{believerSong()})
	// Force the entry to look stale.
	e.cache.mu.Lock()
	e.cache.entries[key].updatedAt = time.Now().Add(-10 * time.Minute)
	e.cache.mu.Unlock()

	results, err := e.SmartSearch(context.Background(), "imagine dragons", Options{WaitForFresh: false})
	require.NoError(t, err)
	require.NotEmpty(t, results, "stale entry must be returned immediately")

	// Trigger a second call right away; its background refresh must
	// collapse into the already in-flight one via single-flight.
	_, _ = e.SmartSearch(context.Background(), "imagine dragons", Options{WaitForFresh: false})

	time.Sleep(300 * time.Millisecond)
	// One full background compute fans out across up to maxVariants
	// variants; two independent (non-deduped) refreshes would double that.
	assert.LessOrEqual(t, atomic.LoadInt32(&primary.primaryCalls), int32(maxVariants))
}

func TestSmartSearch_DedupByID(t *testing.T) {
	primary := &stubAdapter{primaryFn: func(ctx context.Context, query string, page int) (*catalog.Page, error) {
		return &catalog.Page{Results: []*song.Song{believerSong(), believerSong()}}, nil
	}}
	e := New(songindex.New(100), primary, &stubAdapter{}, &stubAdapter{})

	results, err := e.SmartSearch(context.Background(), "believer", Options{})
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, s := range results {
		require.False(t, seen[s.ID], "duplicate id in result set")
		seen[s.ID] = true
	}
}

func TestSmartSearch_FuzzyMatch_AcceptsTypoRejectsUnrelated(t *testing.T) {
	primary := &stubAdapter{primaryFn: func(ctx context.Context, query string, page int) (*catalog.Page, error) {
		return &catalog.Page{Results: []*song.Song{
			believerSong(),
			{ID: "navidad-1", Name: "Feliz Navidad", Artists: song.Artists{Primary: []song.Artist{{ID: "jf", Name: "Jose Feliciano"}}}},
		}}, nil
	}}
	e := New(songindex.New(100), primary, &stubAdapter{}, &stubAdapter{})

	results, err := e.SmartSearch(context.Background(), "immagine dragons", Options{})
	require.NoError(t, err)

	var found, unrelated bool
	for _, s := range results {
		if s.ID == "believer-1" {
			found = true
		}
		if s.ID == "navidad-1" {
			unrelated = true
		}
	}
	assert.True(t, found, "fuzzy match within edit-distance budget must appear")
	assert.False(t, unrelated, "unrelated song must not appear")
}

// TestSmartSearch_FuzzyMatch_AllTypoQueryStillMatchesByCoverage is §8
// concrete scenario 3: every query token is mistyped ("immagine dragonz"
// against "Imagine Dragons - Believer"), so no token matches the haystack
// exactly and the whole-string edit distance (against the full "... -
// Believer" name) blows past the budget. The match must still surface via
// per-token fuzzy coverage.
func TestSmartSearch_FuzzyMatch_AllTypoQueryStillMatchesByCoverage(t *testing.T) {
	primary := &stubAdapter{primaryFn: func(ctx context.Context, query string, page int) (*catalog.Page, error) {
		return &catalog.Page{Results: []*song.Song{believerSong()}}, nil
	}}
	e := New(songindex.New(100), primary, &stubAdapter{}, &stubAdapter{})

	results, err := e.SmartSearch(context.Background(), "immagine dragonz", Options{})
	require.NoError(t, err)

	var found bool
	for _, s := range results {
		if s.ID == "believer-1" {
			found = true
		}
	}
	assert.True(t, found, "all-typo query within per-token edit-distance budget must still surface the match")
}

func TestSmartSearch_BoundedResultSize(t *testing.T) {
	var many []*song.Song
	for i := 0; i < 100; i++ {
		many = append(many, &song.Song{ID: string(rune('a' + i%26)) + "-" + string(rune(i)), Name: "believer track"})
	}
	primary := &stubAdapter{primaryFn: func(ctx context.Context, query string, page int) (*catalog.Page, error) {
		return &catalog.Page{Results: many}, nil
	}}
	e := New(songindex.New(1000), primary, &stubAdapter{}, &stubAdapter{})

	results, err := e.SmartSearch(context.Background(), "believer track", Options{})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), MaxSmartResults)
}
