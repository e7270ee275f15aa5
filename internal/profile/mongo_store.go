package profile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"songshare/internal/apperr"
)

// mongoStore implements Store over five collections, one per §6 node:
// user_preferences, activity_log (push-only), user_activity (song
// aggregate), search_history, listening_history. Grounded on the teacher's
// internal/repositories/mongo_song_repository.go collection-wrapper
// shape and internal/models/database.go index setup.
type mongoStore struct {
	preferences *mongo.Collection
	activityLog *mongo.Collection
	songActivity *mongo.Collection
	searchHistory *mongo.Collection
	listeningHistory *mongo.Collection
}

// NewMongoStore wires a Store backed by db, matching the teacher's
// pattern of taking a *mongo.Database and carving out named collections.
func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{
		preferences:      db.Collection("user_preferences"),
		activityLog:      db.Collection("activity_log"),
		songActivity:     db.Collection("user_activity"),
		searchHistory:    db.Collection("search_history"),
		listeningHistory: db.Collection("listening_history"),
	}
}

// EnsureIndexes creates the indexes CreateIndexes would want for the
// profile store's collections; mirrors models.Database.CreateIndexes.
func (s *mongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.activityLog.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "uid", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return err
	}
	_, err = s.songActivity.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "uid", Value: 1}, {Key: "songId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *mongoStore) GetPreferences(ctx context.Context, uid string) (*UserPreferences, error) {
	var prefs UserPreferences
	err := s.preferences.FindOne(ctx, bson.M{"uid": uid}).Decode(&prefs)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, &apperr.StoreError{Path: "GetPreferences", Err: err}
	}
	return &prefs, nil
}

func (s *mongoStore) SavePreferences(ctx context.Context, uid string, prefs *UserPreferences) error {
	prefs.UID = uid
	now := time.Now()
	existing, err := s.GetPreferences(ctx, uid)
	if err != nil {
		return err
	}
	if existing != nil {
		prefs.CreatedAt = existing.CreatedAt
	} else {
		prefs.CreatedAt = now
	}
	prefs.UpdatedAt = now

	_, err = s.preferences.ReplaceOne(ctx, bson.M{"uid": uid}, prefs, options.Replace().SetUpsert(true))
	if err != nil {
		return &apperr.StoreError{Path: "SavePreferences", Err: err}
	}
	return nil
}

// AppendActivity appends to the durable log first; only that failure is
// returned to the caller. The three derived-node updates run
// concurrently and independently afterward (§5); each failure is logged,
// never returned.
func (s *mongoStore) AppendActivity(ctx context.Context, uid string, event ActivityEvent) error {
	event.UID = uid
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if _, err := s.activityLog.InsertOne(ctx, event); err != nil {
		return &apperr.StoreError{Path: "AppendActivity", Err: err}
	}

	var wg sync.WaitGroup
	updates := []func() error{
		func() error { return s.updateSearchHistory(ctx, uid, event) },
		func() error { return s.updateSongAggregate(ctx, uid, event) },
		func() error { return s.updateListeningHistory(ctx, uid, event) },
	}
	for _, fn := range updates {
		wg.Add(1)
		go func(fn func() error) {
			defer wg.Done()
			if err := fn(); err != nil {
				slog.Error("derived activity update failed", "uid", uid, "type", event.Type, "error", err)
			}
		}(fn)
	}
	wg.Wait()
	return nil
}

func (s *mongoStore) updateSearchHistory(ctx context.Context, uid string, event ActivityEvent) error {
	if event.Type != EventSearch || event.Query == "" {
		return nil
	}
	key := SafeKey(event.Query)
	now := time.Now()
	_, err := s.searchHistory.UpdateOne(ctx,
		bson.M{"uid": uid, "safeKey": key},
		bson.M{
			"$inc": bson.M{"count": 1},
			"$set": bson.M{"query": event.Query, "lastSearched": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// updateSongAggregate applies the atomic counter increment for the event
// type, then recomputes affinity from the post-increment counters via a
// second read — mirroring the teacher's read-then-ReplaceOne pattern but
// using $inc for the counters themselves so two concurrent plays always
// land as +1 each (§5, §8 atomicity scenario).
func (s *mongoStore) updateSongAggregate(ctx context.Context, uid string, event ActivityEvent) error {
	if event.SongID == "" {
		return nil
	}
	inc := bson.M{}
	set := bson.M{}
	switch event.Type {
	case EventPlay:
		inc["play_count"] = 1
		set["last_played"] = time.Now()
	case EventSkip:
		inc["skip_count"] = 1
	case EventSearchClick:
		inc["search_clicked"] = 1
	default:
		return nil
	}
	if event.Artist != "" {
		set["artist"] = event.Artist
	}
	if event.Language != "" {
		set["language"] = event.Language
	}

	update := bson.M{"$inc": inc}
	if len(set) > 0 {
		update["$set"] = set
	}

	_, err := s.songActivity.UpdateOne(ctx,
		bson.M{"uid": uid, "songId": event.SongID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return err
	}
	return s.recomputeAggregateAffinity(ctx, uid, event.SongID)
}

// recomputeAggregateAffinity re-derives affinity from the stored counters.
// It is not itself atomic with the preceding $inc, but affinity is a pure
// function of counters that are; a rare lost update here only delays
// affinity converging, it never corrupts play_count/skip_count.
func (s *mongoStore) recomputeAggregateAffinity(ctx context.Context, uid, songID string) error {
	var agg SongAggregate
	err := s.songActivity.FindOne(ctx, bson.M{"uid": uid, "songId": songID}).Decode(&agg)
	if err != nil {
		return err
	}
	agg.recomputeAffinity()
	_, err = s.songActivity.UpdateOne(ctx,
		bson.M{"uid": uid, "songId": songID},
		bson.M{"$set": bson.M{"affinity": agg.Affinity}},
	)
	return err
}

func (s *mongoStore) updateListeningHistory(ctx context.Context, uid string, event ActivityEvent) error {
	if event.SongID == "" || (event.Type != EventPlay && event.Type != EventSkip) {
		return nil
	}
	field := "lastPlayed"
	if event.Type == EventSkip {
		field = "lastSkipped"
	}
	_, err := s.listeningHistory.UpdateOne(ctx,
		bson.M{"uid": uid, "songId": event.SongID},
		bson.M{"$set": bson.M{field: time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *mongoStore) History(ctx context.Context, uid string, eventType EventType, limit int) ([]ActivityEvent, error) {
	filter := bson.M{"uid": uid}
	if eventType != "" {
		filter["type"] = eventType
	}
	opts := options.Find().SetSort(bson.M{"timestamp": -1}).SetLimit(int64(limit))
	cursor, err := s.activityLog.Find(ctx, filter, opts)
	if err != nil {
		return nil, &apperr.StoreError{Path: "History", Err: err}
	}
	defer cursor.Close(ctx)

	var events []ActivityEvent
	for cursor.Next(ctx) {
		var e ActivityEvent
		if err := cursor.Decode(&e); err != nil {
			slog.Error("failed to decode activity event", "error", err)
			continue
		}
		events = append(events, e)
	}
	return events, cursor.Err()
}

func (s *mongoStore) BuildRealtimeProfile(ctx context.Context, uid string) (*RealtimeProfile, error) {
	prefs, err := s.GetPreferences(ctx, uid)
	if err != nil {
		return nil, err
	}

	aggCursor, err := s.songActivity.Find(ctx, bson.M{"uid": uid})
	if err != nil {
		return nil, &apperr.StoreError{Path: "BuildRealtimeProfile", Err: err}
	}
	defer aggCursor.Close(ctx)
	var aggregates []*SongAggregate
	for aggCursor.Next(ctx) {
		var agg SongAggregate
		if err := aggCursor.Decode(&agg); err != nil {
			slog.Error("failed to decode song aggregate", "error", err)
			continue
		}
		aggregates = append(aggregates, &agg)
	}

	histCursor, err := s.searchHistory.Find(ctx, bson.M{"uid": uid})
	if err != nil {
		return nil, &apperr.StoreError{Path: "BuildRealtimeProfile", Err: err}
	}
	defer histCursor.Close(ctx)
	var history []*SearchHistoryEntry
	for histCursor.Next(ctx) {
		var h SearchHistoryEntry
		if err := histCursor.Decode(&h); err != nil {
			slog.Error("failed to decode search history entry", "error", err)
			continue
		}
		history = append(history, &h)
	}

	if prefs == nil {
		prefs = &UserPreferences{UID: uid}
	}
	return buildRealtimeProfile(prefs, aggregates, history), nil
}
