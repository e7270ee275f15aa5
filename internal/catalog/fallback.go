package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"songshare/internal/apperr"
	"songshare/internal/song"
)

// fallbackAdapter talks to the fallback catalog provider, which returns a
// flat array of records using fields like "song", "primary_artists",
// "media_url", "image", "albumid" rather than the primary provider's
// nested shape (§4.1). Grounded on the teacher's Apple Music service for
// its resty client setup and flat Data[] decode path, simplified since
// the fallback provider here needs no JWT signing of its own.
type fallbackAdapter struct {
	client  *resty.Client
	baseURL string
	apiKey  string
}

// NewFallbackAdapter builds the fallback-provider client.
func NewFallbackAdapter(baseURL, apiKey string) Adapter {
	return &fallbackAdapter{
		client: resty.New().
			SetTimeout(FallbackTimeout).
			SetRetryCount(1).
			SetRetryWaitTime(200 * time.Millisecond),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type fallbackRecord struct {
	ID            string `json:"id"`
	Song          string `json:"song"`
	PrimaryArtist string `json:"primary_artists"`
	AlbumID       string `json:"albumid"`
	Album         string `json:"album"`
	Language      string `json:"language"`
	Year          int    `json:"year"`
	Duration      int    `json:"duration"`
	MediaURL      string `json:"media_url"`
	Image         string `json:"image"`
}

// normalize maps a fallback record to song.Song. Records missing id or
// name are dropped silently, never surfaced (§4.1 invariant).
func (r *fallbackRecord) normalize() *song.Song {
	if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.Song) == "" {
		return nil
	}
	s := &song.Song{
		ID:       r.ID,
		Name:     r.Song,
		Language: r.Language,
		Album:    song.Album{ID: r.AlbumID, Name: r.Album},
	}
	for i, name := range strings.Split(r.PrimaryArtist, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		s.Artists.Primary = append(s.Artists.Primary, song.Artist{ID: fmt.Sprintf("%s-artist-%d", r.ID, i), Name: name})
	}
	if r.Year > 0 {
		y := r.Year
		s.Year = &y
	}
	if r.Duration > 0 {
		d := r.Duration
		s.DurationSec = &d
	}
	// Single stream url convention: tag it 320kbps.
	if r.MediaURL != "" {
		s.DownloadURLs = []song.MediaAsset{{Quality: "320kbps", URL: r.MediaURL}}
	}
	// Single image url convention: synthesize the three standard sizes,
	// all pointing at the same source image.
	if r.Image != "" {
		s.ImageURLs = []song.MediaAsset{
			{Quality: "50x50", URL: r.Image},
			{Quality: "150x150", URL: r.Image},
			{Quality: "500x500", URL: r.Image},
		}
	}
	return s
}

func (f *fallbackAdapter) FallbackSongs(ctx context.Context, query string) ([]*song.Song, error) {
	ctx, cancel := context.WithTimeout(ctx, FallbackTimeout)
	defer cancel()

	var records []fallbackRecord
	r, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"query": query, "api_key": f.apiKey}).
		SetResult(&records).
		Get(f.baseURL + "/search")
	if err != nil {
		return nil, &apperr.UpstreamError{Provider: "fallback", Kind: apperr.UpstreamTimeout, Err: err}
	}
	if r.StatusCode() != 200 {
		return nil, &apperr.UpstreamError{Provider: "fallback", Kind: apperr.UpstreamStatus, Err: fmt.Errorf("status %d", r.StatusCode())}
	}

	songs := make([]*song.Song, 0, len(records))
	for i := range records {
		if s := records[i].normalize(); s != nil {
			songs = append(songs, s)
		}
	}
	return songs, nil
}

func (f *fallbackAdapter) SongByID(ctx context.Context, id string) (*song.Song, error) {
	ctx, cancel := context.WithTimeout(ctx, LookupTimeout)
	defer cancel()

	var rec fallbackRecord
	r, err := f.client.R().SetContext(ctx).SetQueryParam("api_key", f.apiKey).SetResult(&rec).
		Get(fmt.Sprintf("%s/songs/%s", f.baseURL, id))
	if err != nil {
		return nil, &apperr.UpstreamError{Provider: "fallback", Kind: apperr.UpstreamTimeout, Err: err}
	}
	if r.StatusCode() != 200 {
		return nil, &apperr.UpstreamError{Provider: "fallback", Kind: apperr.UpstreamStatus, Err: fmt.Errorf("status %d", r.StatusCode())}
	}
	s := rec.normalize()
	if s == nil {
		return nil, &apperr.UpstreamError{Provider: "fallback", Kind: apperr.UpstreamParse, Err: fmt.Errorf("missing id or name")}
	}
	return s, nil
}

// The fallback provider has no dedicated album/artist endpoints in this
// deployment; these operations are served by the primary/broad-search
// adapters only, so the fallback adapter returns empty results rather
// than an error (the Smart Search Engine never depends on them here).
func (f *fallbackAdapter) AlbumByID(ctx context.Context, id string) (*Album, error) { return nil, nil }
func (f *fallbackAdapter) AlbumsByQuery(ctx context.Context, query string) ([]*Album, error) {
	return nil, nil
}
func (f *fallbackAdapter) ArtistsByQuery(ctx context.Context, query string) ([]*ArtistProfile, error) {
	return nil, nil
}
func (f *fallbackAdapter) ArtistsByLanguage(ctx context.Context, language string) ([]*ArtistProfile, error) {
	return nil, nil
}
func (f *fallbackAdapter) ArtistAlbums(ctx context.Context, artistID string, limit, page int) ([]*Album, error) {
	return nil, nil
}
func (f *fallbackAdapter) BroadSearch(ctx context.Context, query string, page int) (*BroadResult, error) {
	songs, err := f.FallbackSongs(ctx, query)
	if err != nil {
		return nil, err
	}
	return &BroadResult{Songs: songs}, nil
}
func (f *fallbackAdapter) PrimarySongs(ctx context.Context, query string, page int) (*Page, error) {
	return nil, nil
}
