// Package catalog implements the Upstream Catalog Adapter: timeout-bounded
// HTTP access to a primary and a fallback music-catalog provider, plus a
// broad-search provider that returns songs, albums and artists in one
// payload. Every adapter normalizes its provider's shape to song.Song;
// records that fail normalization are dropped, never surfaced.
package catalog

import (
	"context"
	"time"

	"songshare/internal/song"
)

// Default per-operation timeouts (§4.1).
const (
	PrimaryTimeout  = 2200 * time.Millisecond
	FallbackTimeout = 1800 * time.Millisecond
	LookupTimeout   = 1500 * time.Millisecond
)

// Page is a paginated primary-provider search response.
type Page struct {
	Start   int
	Total   int
	Results []*song.Song
}

// BroadResult is the combined payload a broad-search query returns.
type BroadResult struct {
	Songs   []*song.Song
	Albums  []*Album
	Artists []*ArtistProfile
}

// Album is a catalog album, optionally with its track listing.
type Album struct {
	ID    string
	Name  string
	Songs []*song.Song
}

// ArtistProfile is a catalog artist identity (name + id only; the core
// does not need artist bios or imagery).
type ArtistProfile struct {
	ID   string
	Name string
}

// Adapter is the Upstream Catalog Adapter contract (§4.1). Every method is
// cancellable via ctx and bounded by the package's default timeouts unless
// the caller's context deadline is tighter.
type Adapter interface {
	PrimarySongs(ctx context.Context, query string, page int) (*Page, error)
	FallbackSongs(ctx context.Context, query string) ([]*song.Song, error)
	BroadSearch(ctx context.Context, query string, page int) (*BroadResult, error)

	SongByID(ctx context.Context, id string) (*song.Song, error)
	AlbumByID(ctx context.Context, id string) (*Album, error)
	AlbumsByQuery(ctx context.Context, query string) ([]*Album, error)
	ArtistsByQuery(ctx context.Context, query string) ([]*ArtistProfile, error)
	// ArtistsByLanguage issues "Top <language> Artists" and "Popular
	// <language> Artists" in parallel and merges the results by id (§4.1).
	ArtistsByLanguage(ctx context.Context, language string) ([]*ArtistProfile, error)
	ArtistAlbums(ctx context.Context, artistID string, limit, page int) ([]*Album, error)
}

// mergeArtistsByID dedups two artist slices, keeping first occurrence
// order (top-artists results rank ahead of popular-artists results).
func mergeArtistsByID(a, b []*ArtistProfile) []*ArtistProfile {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]*ArtistProfile, 0, len(a)+len(b))
	for _, list := range [][]*ArtistProfile{a, b} {
		for _, artist := range list {
			if artist == nil || artist.ID == "" || seen[artist.ID] {
				continue
			}
			seen[artist.ID] = true
			out = append(out, artist)
		}
	}
	return out
}
