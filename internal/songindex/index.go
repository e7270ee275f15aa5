// Package songindex implements the Local Song Index (§4.2): a bounded LRU
// map from song id to a precomputed search entry, used as the Smart
// Search Engine's zero-latency first pass. Grounded on the teacher's
// internal/search/cache/memory.go, which hand-rolls the identical
// container/list + map LRU shape for its in-memory cache tier.
package songindex

import (
	"container/list"
	"sync"
	"time"

	"songshare/internal/song"
	"songshare/internal/textmatch"
)

// Entry is a precomputed, index-owned search record (§3 LocalIndexEntry).
// Callers never get this struct directly; Search and Get return Song
// copies.
type Entry struct {
	Song            *song.Song
	Name            string
	Artists         []string
	Album           string
	Haystack        string
	CompactName     string
	CompactHaystack string
	HaystackTokens  []string
	UpdatedAt       time.Time
	LastAccessAt    time.Time

	element *list.Element
}

// DefaultCap is the default eviction threshold (§3).
const DefaultCap = 6000

// MaxSearchResults bounds a single searchLocal call (§4.2).
const MaxSearchResults = 120

// Index is the Local Song Index: a bounded, LRU-evicted map guarded by a
// single mutex, matching the teacher's memory.go pattern and the spec's
// §5 requirement that every read-modify-write on process-wide maps be
// serialized.
type Index struct {
	mu      sync.Mutex
	cap     int
	entries map[string]*Entry
	order   *list.List // front = most recently accessed
}

// New creates an Index with the given capacity (0 uses DefaultCap).
func New(cap int) *Index {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Index{
		cap:     cap,
		entries: make(map[string]*Entry),
		order:   list.New(),
	}
}

// Upsert inserts or refreshes a Song's index entry with precomputed
// fields, then touches its LRU position.
func (idx *Index) Upsert(s *song.Song) {
	if !s.Valid() {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	now := time.Now()
	name := textmatch.Normalize(s.Name)
	artists := s.ArtistNames()
	haystack := textmatch.Haystack(s.Name, artists, s.Album.Name)

	if e, ok := idx.entries[s.ID]; ok {
		e.Song = s.Clone()
		e.Name = name
		e.Artists = artists
		e.Album = s.Album.Name
		e.Haystack = haystack
		e.CompactName = textmatch.Compact(name)
		e.CompactHaystack = textmatch.Compact(haystack)
		e.HaystackTokens = textmatch.Tokenize(haystack)
		e.UpdatedAt = now
		e.LastAccessAt = now
		idx.order.MoveToFront(e.element)
		return
	}

	e := &Entry{
		Song:            s.Clone(),
		Name:            name,
		Artists:         artists,
		Album:           s.Album.Name,
		Haystack:        haystack,
		CompactName:     textmatch.Compact(name),
		CompactHaystack: textmatch.Compact(haystack),
		HaystackTokens:  textmatch.Tokenize(haystack),
		UpdatedAt:       now,
		LastAccessAt:    now,
	}
	e.element = idx.order.PushFront(s.ID)
	idx.entries[s.ID] = e
	idx.evictIfOverCap()
}

// evictIfOverCap removes the entry with the smallest last_access_at when
// over capacity. Because the list is kept in MRU-front order via
// Upsert/Get touching, the back of the list IS the least-recently-used
// entry, so eviction is O(1).
func (idx *Index) evictIfOverCap() {
	for len(idx.entries) > idx.cap {
		back := idx.order.Back()
		if back == nil {
			return
		}
		id := back.Value.(string)
		idx.order.Remove(back)
		delete(idx.entries, id)
	}
}

// Get returns a copy of the Song for id, touching its LRU position.
func (idx *Index) Get(id string) (*song.Song, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	e, ok := idx.entries[id]
	if !ok {
		return nil, false
	}
	e.LastAccessAt = time.Now()
	idx.order.MoveToFront(e.element)
	return e.Song.Clone(), true
}

// Len reports the current entry count.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.entries)
}

// Match is a zero-I/O candidate returned by Search, carrying its tier and
// the entry's snapshot fields needed for the Smart Search Engine's full
// scoring pass (which adds source weight, bonuses, and variant penalty
// on top of this tier classification).
type Match struct {
	Song *song.Song
	Tier textmatch.Tier
}

// Search runs the same tiered match rules as the full scoring pass
// (§4.3) against precomputed fields only — no I/O, no upstream fan-out.
// At most MaxSearchResults candidates are returned, in most-recently-used
// order; they are not sorted by tier (the caller re-sorts after combining
// with upstream results).
func (idx *Index) Search(query string) []Match {
	normQuery := textmatch.Normalize(query)
	if normQuery == "" {
		return nil
	}
	compactQuery := textmatch.Compact(normQuery)
	queryTokens := textmatch.Tokenize(normQuery)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	matches := make([]Match, 0, MaxSearchResults)
	for el := idx.order.Front(); el != nil && len(matches) < MaxSearchResults; el = el.Next() {
		id := el.Value.(string)
		e := idx.entries[id]
		if e == nil {
			continue
		}
		matched := 0
		tokenSet := make(map[string]bool, len(e.HaystackTokens))
		for _, tok := range e.HaystackTokens {
			tokenSet[tok] = true
		}
		for _, qt := range queryTokens {
			if tokenSet[qt] || textmatch.FuzzyTokenHit(qt, e.HaystackTokens) {
				matched++
			}
		}
		tier := textmatch.ClassifyTier(e.Name, e.CompactName, e.Haystack, e.CompactHaystack, normQuery, compactQuery, matched, len(queryTokens))
		if tier == textmatch.TierNone {
			continue
		}
		matches = append(matches, Match{Song: e.Song.Clone(), Tier: tier})
	}
	return matches
}
