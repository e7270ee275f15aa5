// +build integration

// Package integration holds tests that talk to a real MongoDB and Valkey
// instance, gated behind the "integration" build tag and the MONGODB_URL /
// VALKEY_URL environment variables (unset means skip, not fail).
package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"songshare/internal/cache"
	"songshare/internal/profile"
)

func mongoDB(t *testing.T) *mongo.Database {
	t.Helper()
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL not set, skipping")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client.Database("songshare_integration_test")
}

// TestMongoStore_SaveAndLoadPreferences exercises the Activity & Profile
// Store's MongoDB-backed implementation against a real server.
func TestMongoStore_SaveAndLoadPreferences(t *testing.T) {
	db := mongoDB(t)
	store := profile.NewMongoStore(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, store.EnsureIndexes(ctx))

	uid := "integration-test-user"
	prefs := &profile.UserPreferences{
		UID:             uid,
		Languages:       []string{"hindi", "english"},
		FavoriteArtists: []profile.FavoriteArtist{{ID: "a1", Name: "Test Artist"}},
	}
	require.NoError(t, store.SavePreferences(ctx, uid, prefs))

	loaded, err := store.GetPreferences(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, []string{"hindi", "english"}, loaded.Languages)

	require.NoError(t, store.AppendActivity(ctx, uid, profile.ActivityEvent{
		Type:      profile.EventPlay,
		Timestamp: time.Now(),
		SongID:    "s1",
		SongName:  "Test Song",
		Artist:    "Test Artist",
	}))

	rp, err := store.BuildRealtimeProfile(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, rp)
	require.Contains(t, rp.SongInteractions, "s1")
}

// TestValkeyCache_SetGet exercises the shared L2 cache tier against a real
// Valkey server.
func TestValkeyCache_SetGet(t *testing.T) {
	url := os.Getenv("VALKEY_URL")
	if url == "" {
		t.Skip("VALKEY_URL not set, skipping")
	}
	c, err := cache.NewMultiLevelCache(url, 100)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := "integration-test:smartsearch:probe"
	require.NoError(t, c.Set(ctx, key, []byte(`{"ok":true}`), time.Minute))

	val, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"ok":true}`), val)

	require.NoError(t, c.Delete(ctx, key))
}
