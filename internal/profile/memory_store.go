package profile

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryStore is an in-process Store, used by package tests and by
// callers that run the core without a Mongo deployment (the spec treats
// the store as an external collaborator; this is the in-memory stand-in
// for it, in the same spirit as the teacher's internal/cache simple
// in-memory cache sitting alongside the Valkey-backed one).
type memoryStore struct {
	mu            sync.Mutex
	preferences   map[string]*UserPreferences
	activityLog   map[string][]ActivityEvent
	songActivity  map[string]map[string]*SongAggregate
	searchHistory map[string]map[string]*SearchHistoryEntry
}

// NewMemoryStore builds an in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		preferences:   make(map[string]*UserPreferences),
		activityLog:   make(map[string][]ActivityEvent),
		songActivity:  make(map[string]map[string]*SongAggregate),
		searchHistory: make(map[string]map[string]*SearchHistoryEntry),
	}
}

func (s *memoryStore) GetPreferences(ctx context.Context, uid string) (*UserPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.preferences[uid]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *memoryStore) SavePreferences(ctx context.Context, uid string, prefs *UserPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs.UID = uid
	now := time.Now()
	if existing, ok := s.preferences[uid]; ok {
		prefs.CreatedAt = existing.CreatedAt
	} else {
		prefs.CreatedAt = now
	}
	prefs.UpdatedAt = now
	cp := *prefs
	s.preferences[uid] = &cp
	return nil
}

func (s *memoryStore) AppendActivity(ctx context.Context, uid string, event ActivityEvent) error {
	event.UID = uid
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.activityLog[uid] = append(s.activityLog[uid], event)
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.updateSearchHistory(uid, event) }()
	go func() { defer wg.Done(); s.updateSongAggregate(uid, event) }()
	go func() { defer wg.Done() }() // listening_history has no reader in this core; tracked by songActivity.LastPlayed instead.
	wg.Wait()
	return nil
}

func (s *memoryStore) updateSearchHistory(uid string, event ActivityEvent) {
	if event.Type != EventSearch || event.Query == "" {
		return
	}
	key := SafeKey(event.Query)
	s.mu.Lock()
	defer s.mu.Unlock()
	byKey, ok := s.searchHistory[uid]
	if !ok {
		byKey = make(map[string]*SearchHistoryEntry)
		s.searchHistory[uid] = byKey
	}
	entry, ok := byKey[key]
	if !ok {
		entry = &SearchHistoryEntry{Query: event.Query}
		byKey[key] = entry
	}
	entry.Count++
	entry.LastSearched = time.Now()
}

func (s *memoryStore) updateSongAggregate(uid string, event ActivityEvent) {
	if event.SongID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bySong, ok := s.songActivity[uid]
	if !ok {
		bySong = make(map[string]*SongAggregate)
		s.songActivity[uid] = bySong
	}
	agg, ok := bySong[event.SongID]
	if !ok {
		agg = &SongAggregate{SongID: event.SongID}
		bySong[event.SongID] = agg
	}
	switch event.Type {
	case EventPlay:
		agg.PlayCount++
		agg.LastPlayed = time.Now()
	case EventSkip:
		agg.SkipCount++
	case EventSearchClick:
		agg.SearchClicks++
	default:
		return
	}
	if event.Artist != "" {
		agg.Artist = event.Artist
	}
	if event.Language != "" {
		agg.Language = event.Language
	}
	agg.recomputeAffinity()
}

func (s *memoryStore) History(ctx context.Context, uid string, eventType EventType, limit int) ([]ActivityEvent, error) {
	s.mu.Lock()
	all := append([]ActivityEvent(nil), s.activityLog[uid]...)
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })

	var out []ActivityEvent
	for _, e := range all {
		if eventType != "" && e.Type != eventType {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *memoryStore) BuildRealtimeProfile(ctx context.Context, uid string) (*RealtimeProfile, error) {
	s.mu.Lock()
	prefs := s.preferences[uid]
	var aggregates []*SongAggregate
	for _, agg := range s.songActivity[uid] {
		cp := *agg
		aggregates = append(aggregates, &cp)
	}
	var history []*SearchHistoryEntry
	for _, h := range s.searchHistory[uid] {
		cp := *h
		history = append(history, &cp)
	}
	s.mu.Unlock()

	if prefs == nil {
		prefs = &UserPreferences{UID: uid}
	}
	return buildRealtimeProfile(prefs, aggregates, history), nil
}
