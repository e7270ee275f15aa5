package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"songshare/internal/cache"
	"songshare/internal/song"
)

// Fresh/stale TTLs (§4.3, §8 concrete scenarios use FRESH_TTL=120s).
const (
	FreshTTL = 2 * time.Minute
	StaleTTL = 20 * time.Minute
)

type cacheState int

const (
	cacheMissing cacheState = iota
	cacheFresh
	cacheStale
	cacheExpired
)

type cacheEntry struct {
	songs        []*song.Song
	updatedAt    time.Time
	lastAccessAt time.Time
}

// resultCache is the Smart Search Engine's process-wide cache map (§5):
// every read-modify-write is serialized by a single mutex, matching the
// teacher's internal/search/cache/memory.go LRU-cache pattern generalized
// to fresh/stale states instead of a single expiry. shared, when set, is
// the teacher's internal/cache.MultiLevelCache Valkey tier, consulted as
// an L2 behind the in-process L1 map so a fresh result survives across
// instances and process restarts.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	shared  cache.Cache
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[string]*cacheEntry)}
}

func newResultCacheWithShared(shared cache.Cache) *resultCache {
	return &resultCache{entries: make(map[string]*cacheEntry), shared: shared}
}

// cacheKey builds the (normalized_query, sorted preferred languages) key
// (§4.3).
func cacheKey(normQuery string, preferredLanguages []string) string {
	if len(preferredLanguages) == 0 {
		return normQuery + "|_"
	}
	langs := append([]string(nil), preferredLanguages...)
	sort.Strings(langs)
	return normQuery + "|" + strings.Join(langs, ",")
}

// get returns the entry (if any) and its freshness state as of now.
// Expired entries are evicted on access. On an L1 miss it falls through
// to the shared L2 tier (if configured) and backfills L1.
func (c *resultCache) get(ctx context.Context, key string) (*cacheEntry, cacheState) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if !ok {
		e, ok = c.getShared(ctx, key)
		if !ok {
			return nil, cacheMissing
		}
		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()
	}

	age := time.Since(e.updatedAt)
	switch {
	case age <= FreshTTL:
		e.lastAccessAt = time.Now()
		return e, cacheFresh
	case age <= StaleTTL:
		e.lastAccessAt = time.Now()
		return e, cacheStale
	default:
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, cacheExpired
	}
}

// put stores a fresh result set for key. A failed refresh must never call
// put and must never evict the existing entry (§7 cache-failure policy);
// callers simply skip the call on error.
func (c *resultCache) put(ctx context.Context, key string, songs []*song.Song) {
	c.mu.Lock()
	now := time.Now()
	c.entries[key] = &cacheEntry{songs: songs, updatedAt: now, lastAccessAt: now}
	c.mu.Unlock()
	c.putShared(ctx, key, songs, now)
}

type sharedCachePayload struct {
	Songs     []*song.Song `json:"songs"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (c *resultCache) getShared(ctx context.Context, key string) (*cacheEntry, bool) {
	if c.shared == nil {
		return nil, false
	}
	raw, err := c.shared.Get(ctx, "smartsearch:"+key)
	if err != nil || raw == nil {
		return nil, false
	}
	var payload sharedCachePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("smart search L2 cache decode failed", "key", key, "error", err)
		return nil, false
	}
	return &cacheEntry{songs: payload.Songs, updatedAt: payload.UpdatedAt, lastAccessAt: time.Now()}, true
}

func (c *resultCache) putShared(ctx context.Context, key string, songs []*song.Song, updatedAt time.Time) {
	if c.shared == nil {
		return
	}
	raw, err := json.Marshal(sharedCachePayload{Songs: songs, UpdatedAt: updatedAt})
	if err != nil {
		return
	}
	if err := c.shared.Set(ctx, "smartsearch:"+key, raw, StaleTTL); err != nil {
		slog.Warn("smart search L2 cache write failed", "key", key, "error", err)
	}
}

func cloneSongs(songs []*song.Song) []*song.Song {
	out := make([]*song.Song, len(songs))
	for i, s := range songs {
		out[i] = s.Clone()
	}
	return out
}
