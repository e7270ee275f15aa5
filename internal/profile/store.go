package profile

import "context"

// Store is the Activity & Profile Store contract (§2, §6): preferences
// read/write, activity append with concurrent derived-aggregate updates,
// activity history read, and on-demand RealtimeProfile construction. The
// spec treats this as an external collaborator behind a remote key-value
// tree; Mongo (the teacher's store) stands in for it here.
type Store interface {
	// GetPreferences returns (nil, nil) if the user has never saved
	// preferences — callers map that to 404 (§6).
	GetPreferences(ctx context.Context, uid string) (*UserPreferences, error)

	// SavePreferences upserts preferences for uid. Saving the identical
	// payload twice must leave every field but UpdatedAt unchanged (§8).
	SavePreferences(ctx context.Context, uid string, prefs *UserPreferences) error

	// AppendActivity appends event to the durable activity log, then
	// fires the three derived-node updates (search_history, song
	// aggregate, listening_history) concurrently. The log append is the
	// only part whose failure fails the call; derived-node failures are
	// logged and swallowed (§5, §7).
	AppendActivity(ctx context.Context, uid string, event ActivityEvent) error

	// History returns the most recent activity events for uid, optionally
	// filtered by eventType ("" means any type), newest first, capped at
	// limit.
	History(ctx context.Context, uid string, eventType EventType, limit int) ([]ActivityEvent, error)

	// BuildRealtimeProfile assembles a RealtimeProfile from current
	// preferences and derived aggregates. Callers (the reranker) are
	// responsible for caching the result; the store does no caching of
	// its own.
	BuildRealtimeProfile(ctx context.Context, uid string) (*RealtimeProfile, error)
}
