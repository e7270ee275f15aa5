// Package profile implements the Activity & Profile Store: reading
// UserPreferences, appending ActivityEvents, maintaining the derived
// aggregates they feed, and building the RealtimeProfile the
// Personalized Reranker and Recommendation Generator consume. Grounded
// on the teacher's internal/repositories/mongo_song_repository.go
// (mongo-driver collection wrapper shape) and internal/models/database.go
// (Database handle, index setup), generalized from the song catalog to
// per-user preference/activity documents.
package profile

import "time"

// FavoriteArtist is a user-nominated artist preference.
type FavoriteArtist struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// UserPreferences is the persisted preference document for one user.
type UserPreferences struct {
	UID             string           `bson:"uid" json:"uid"`
	Languages       []string         `bson:"languages" json:"languages"`
	FavoriteArtists []FavoriteArtist `bson:"favoriteArtists" json:"favoriteArtists"`
	DisplayName     string           `bson:"displayName,omitempty" json:"displayName,omitempty"`
	Email           string           `bson:"email,omitempty" json:"email,omitempty"`
	CreatedAt       time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// EventType enumerates the four activity kinds the store accepts.
type EventType string

const (
	EventSearch      EventType = "search"
	EventPlay        EventType = "play"
	EventSkip        EventType = "skip"
	EventSearchClick EventType = "search_click"
)

// Valid reports whether t is one of the four known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventSearch, EventPlay, EventSkip, EventSearchClick:
		return true
	}
	return false
}

// ActivityEvent is one push-only entry in a user's activity log.
type ActivityEvent struct {
	UID       string    `bson:"uid" json:"-"`
	Type      EventType `bson:"type" json:"type"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`

	SongID   string `bson:"songId,omitempty" json:"songId,omitempty"`
	SongName string `bson:"songName,omitempty" json:"songName,omitempty"`
	Artist   string `bson:"artist,omitempty" json:"artist,omitempty"`
	Language string `bson:"language,omitempty" json:"language,omitempty"`
	Genre    string `bson:"genre,omitempty" json:"genre,omitempty"`
	Query    string `bson:"query,omitempty" json:"query,omitempty"`

	DurationSec *int `bson:"duration,omitempty" json:"duration,omitempty"`
	SkipTimeSec *int `bson:"skipTime,omitempty" json:"skipTime,omitempty"`
}

// SongAggregate is the ML-friendly per-(uid,song) rollup stored at
// user_activity/{uid}/{songId} (§3).
type SongAggregate struct {
	SongID       string    `bson:"songId" json:"songId"`
	PlayCount    int       `bson:"play_count" json:"playCount"`
	SkipCount    int       `bson:"skip_count" json:"skipCount"`
	SearchClicks int       `bson:"search_clicked" json:"searchClicked"`
	LastPlayed   time.Time `bson:"last_played" json:"lastPlayed"`
	Artist       string    `bson:"artist,omitempty" json:"artist,omitempty"`
	Language     string    `bson:"language,omitempty" json:"language,omitempty"`

	// Affinity is recomputed on every write: play_count*2 +
	// search_clicked*0.75 - skip_count*2.5.
	Affinity float64 `bson:"affinity" json:"affinity"`
}

// recomputeAffinity applies the §3 formula.
func (a *SongAggregate) recomputeAffinity() {
	a.Affinity = float64(a.PlayCount)*2 + float64(a.SearchClicks)*0.75 - float64(a.SkipCount)*2.5
}

// SearchHistoryEntry is the per-query counter stored at
// search_history/{uid}/{safeKey(query)}.
type SearchHistoryEntry struct {
	Query        string    `bson:"query" json:"query"`
	Count        int       `bson:"count" json:"count"`
	LastSearched time.Time `bson:"lastSearched" json:"lastSearched"`
}

// SongInteraction is one entry of RealtimeProfile.SongInteractions.
type SongInteraction struct {
	PlayCount  int
	SkipCount  int
	Affinity   float64
	LastPlayed time.Time
	Artist     string
	Language   string
}

// RealtimeProfile is the on-demand view built from UserPreferences plus
// derived aggregates (§3). It is the only thing the reranker and the
// recommendation generator read; neither touches the store directly.
type RealtimeProfile struct {
	UID string

	Languages       []string
	LanguageAffinity map[string]float64

	FavoriteArtists []FavoriteArtist
	ArtistAffinity  map[string]float64

	// SearchTerms is deduped and capped at maxSearchTerms (§3).
	SearchTerms []string

	// SongInteractions is capped at maxSongInteractions most recent (§3).
	SongInteractions map[string]SongInteraction
}

const (
	maxSearchTerms      = 40
	maxSongInteractions = 500
)
