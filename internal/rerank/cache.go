package rerank

import (
	"container/list"
	"context"
	"sync"
	"time"

	"songshare/internal/profile"
)

// profileTTL and profileCacheCap match §4.4 and §9: 2-minute per-uid
// TTL, LRU-capped at 300 users. Grounded on the teacher's
// internal/search/cache/memory.go container/list-backed LRU, the same
// pattern the Local Song Index reuses.
const (
	profileTTL      = 2 * time.Minute
	profileCacheCap = 300
)

type profileCacheEntry struct {
	uid       string
	profile   *profile.RealtimeProfile
	fetchedAt time.Time
	elem      *list.Element
}

// profileCache is a bounded, TTL'd cache in front of Store.
// BuildRealtimeProfile. Single-flight is explicitly not required here
// (§4.4: "occasional double-fetch is tolerable"), so a plain mutex
// guards both the map and the LRU list.
type profileCache struct {
	store profile.Store

	mu      sync.Mutex
	entries map[string]*profileCacheEntry
	order   *list.List
}

func newProfileCache(store profile.Store) *profileCache {
	return &profileCache{
		store:   store,
		entries: make(map[string]*profileCacheEntry),
		order:   list.New(),
	}
}

// get returns a RealtimeProfile for uid, refreshing from the store if
// the cached entry is absent or older than profileTTL.
func (c *profileCache) get(ctx context.Context, uid string) (*profile.RealtimeProfile, error) {
	c.mu.Lock()
	entry, ok := c.entries[uid]
	if ok && time.Since(entry.fetchedAt) <= profileTTL {
		c.order.MoveToFront(entry.elem)
		p := entry.profile
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	p, err := c.store.BuildRealtimeProfile(ctx, uid)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[uid]; ok {
		existing.profile = p
		existing.fetchedAt = time.Now()
		c.order.MoveToFront(existing.elem)
	} else {
		entry := &profileCacheEntry{uid: uid, profile: p, fetchedAt: time.Now()}
		entry.elem = c.order.PushFront(entry)
		c.entries[uid] = entry
		c.evictIfOverCap()
	}
	return p, nil
}

func (c *profileCache) evictIfOverCap() {
	for len(c.entries) > profileCacheCap {
		back := c.order.Back()
		if back == nil {
			return
		}
		entry := back.Value.(*profileCacheEntry)
		c.order.Remove(back)
		delete(c.entries, entry.uid)
	}
}
