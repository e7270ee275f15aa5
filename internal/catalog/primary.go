package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"songshare/internal/apperr"
	"songshare/internal/song"
)

// primaryAdapter talks to the primary catalog provider using OAuth2
// client-credentials auth, grounded on the teacher's Spotify service:
// a retry-configured resty client plus a double-checked-locking token
// cache built from golang.org/x/oauth2/clientcredentials.
type primaryAdapter struct {
	client      *resty.Client
	tokenSource oauth2.TokenSource
	baseURL     string

	mu    sync.RWMutex
	token *oauth2.Token
}

// NewPrimaryAdapter builds the primary-provider client. baseURL is the
// catalog API root (e.g. "https://api.primary-catalog.example/v1").
func NewPrimaryAdapter(clientID, clientSecret, tokenURL, baseURL string) Adapter {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	return &primaryAdapter{
		client: resty.New().
			SetTimeout(PrimaryTimeout).
			SetRetryCount(2).
			SetRetryWaitTime(300 * time.Millisecond).
			SetRetryMaxWaitTime(1500 * time.Millisecond),
		tokenSource: cfg.TokenSource(context.Background()),
		baseURL:     baseURL,
	}
}

func (p *primaryAdapter) ensureToken(ctx context.Context) (string, error) {
	p.mu.RLock()
	if p.token != nil && p.token.Valid() {
		tok := p.token.AccessToken
		p.mu.RUnlock()
		return tok, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != nil && p.token.Valid() {
		return p.token.AccessToken, nil
	}
	tok, err := p.tokenSource.Token()
	if err != nil {
		return "", &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamTimeout, Err: err}
	}
	p.token = tok
	return tok.AccessToken, nil
}

type primarySearchResponse struct {
	Start   int                  `json:"start"`
	Total   int                  `json:"total"`
	Results []primaryTrackRecord `json:"results"`
}

type primaryTrackRecord struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Language string   `json:"language"`
	Year     int      `json:"year"`
	Duration int      `json:"duration_sec"`
	Pop      float64  `json:"popularity"`
	Album    struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"album"`
	Artists struct {
		Primary []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"primary"`
	} `json:"artists"`
	Images []struct {
		Quality string `json:"quality"`
		URL     string `json:"url"`
	} `json:"images"`
}

func (r *primaryTrackRecord) normalize() *song.Song {
	if r.ID == "" || r.Name == "" {
		return nil
	}
	s := &song.Song{
		ID:       r.ID,
		Name:     r.Name,
		Language: r.Language,
		Album:    song.Album{ID: r.Album.ID, Name: r.Album.Name},
	}
	for _, a := range r.Artists.Primary {
		s.Artists.Primary = append(s.Artists.Primary, song.Artist{ID: a.ID, Name: a.Name})
	}
	for _, img := range r.Images {
		s.ImageURLs = append(s.ImageURLs, song.MediaAsset{Quality: img.Quality, URL: img.URL})
	}
	if r.Year > 0 {
		y := r.Year
		s.Year = &y
	}
	if r.Duration > 0 {
		d := r.Duration
		s.DurationSec = &d
	}
	pop := r.Pop
	s.Popularity = &pop
	return s
}

func (p *primaryAdapter) PrimarySongs(ctx context.Context, query string, page int) (*Page, error) {
	token, err := p.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, PrimaryTimeout)
	defer cancel()

	var resp primarySearchResponse
	r, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{"q": query, "page": fmt.Sprintf("%d", page)}).
		SetResult(&resp).
		Get(p.baseURL + "/search/songs")
	if err != nil {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamTimeout, Err: err}
	}
	if r.StatusCode() != 200 {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamStatus, Err: fmt.Errorf("status %d", r.StatusCode())}
	}

	page_ := &Page{Start: resp.Start, Total: resp.Total}
	for i := range resp.Results {
		if s := resp.Results[i].normalize(); s != nil {
			page_.Results = append(page_.Results, s)
		}
	}
	return page_, nil
}

func (p *primaryAdapter) SongByID(ctx context.Context, id string) (*song.Song, error) {
	token, err := p.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, LookupTimeout)
	defer cancel()

	var rec primaryTrackRecord
	r, err := p.client.R().SetContext(ctx).SetAuthToken(token).SetResult(&rec).
		Get(fmt.Sprintf("%s/songs/%s", p.baseURL, id))
	if err != nil {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamTimeout, Err: err}
	}
	if r.StatusCode() == 404 {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamStatus, Err: fmt.Errorf("not found")}
	}
	if r.StatusCode() != 200 {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamStatus, Err: fmt.Errorf("status %d", r.StatusCode())}
	}
	s := rec.normalize()
	if s == nil {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamParse, Err: fmt.Errorf("missing id or name")}
	}
	return s, nil
}

func (p *primaryAdapter) AlbumByID(ctx context.Context, id string) (*Album, error) {
	token, err := p.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, LookupTimeout)
	defer cancel()

	var resp struct {
		ID      string               `json:"id"`
		Name    string               `json:"name"`
		Results []primaryTrackRecord `json:"tracks"`
	}
	r, err := p.client.R().SetContext(ctx).SetAuthToken(token).SetResult(&resp).
		Get(fmt.Sprintf("%s/albums/%s", p.baseURL, id))
	if err != nil {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamTimeout, Err: err}
	}
	if r.StatusCode() != 200 {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamStatus, Err: fmt.Errorf("status %d", r.StatusCode())}
	}
	album := &Album{ID: resp.ID, Name: resp.Name}
	for i := range resp.Results {
		if s := resp.Results[i].normalize(); s != nil {
			album.Songs = append(album.Songs, s)
		}
	}
	return album, nil
}

func (p *primaryAdapter) AlbumsByQuery(ctx context.Context, query string) ([]*Album, error) {
	token, err := p.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, LookupTimeout)
	defer cancel()

	var resp struct {
		Results []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"results"`
	}
	r, err := p.client.R().SetContext(ctx).SetAuthToken(token).
		SetQueryParam("q", query).SetResult(&resp).
		Get(p.baseURL + "/search/albums")
	if err != nil {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamTimeout, Err: err}
	}
	if r.StatusCode() != 200 {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamStatus, Err: fmt.Errorf("status %d", r.StatusCode())}
	}
	albums := make([]*Album, 0, len(resp.Results))
	for _, a := range resp.Results {
		if a.ID == "" || a.Name == "" {
			continue
		}
		albums = append(albums, &Album{ID: a.ID, Name: a.Name})
	}
	return albums, nil
}

func (p *primaryAdapter) ArtistsByQuery(ctx context.Context, query string) ([]*ArtistProfile, error) {
	return p.searchArtists(ctx, query)
}

func (p *primaryAdapter) searchArtists(ctx context.Context, query string) ([]*ArtistProfile, error) {
	token, err := p.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, LookupTimeout)
	defer cancel()

	var resp struct {
		Results []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"results"`
	}
	r, err := p.client.R().SetContext(ctx).SetAuthToken(token).
		SetQueryParam("q", query).SetResult(&resp).
		Get(p.baseURL + "/search/artists")
	if err != nil {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamTimeout, Err: err}
	}
	if r.StatusCode() != 200 {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamStatus, Err: fmt.Errorf("status %d", r.StatusCode())}
	}
	artists := make([]*ArtistProfile, 0, len(resp.Results))
	for _, a := range resp.Results {
		if a.ID == "" {
			continue
		}
		artists = append(artists, &ArtistProfile{ID: a.ID, Name: a.Name})
	}
	return artists, nil
}

func (p *primaryAdapter) ArtistsByLanguage(ctx context.Context, language string) ([]*ArtistProfile, error) {
	var top, popular []*ArtistProfile
	var topErr, popErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		top, topErr = p.searchArtists(ctx, fmt.Sprintf("Top %s Artists", language))
	}()
	go func() {
		defer wg.Done()
		popular, popErr = p.searchArtists(ctx, fmt.Sprintf("Popular %s Artists", language))
	}()
	wg.Wait()
	if topErr != nil && popErr != nil {
		return nil, topErr
	}
	return mergeArtistsByID(top, popular), nil
}

func (p *primaryAdapter) ArtistAlbums(ctx context.Context, artistID string, limit, page int) ([]*Album, error) {
	token, err := p.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, LookupTimeout)
	defer cancel()

	var resp struct {
		Results []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"results"`
	}
	r, err := p.client.R().SetContext(ctx).SetAuthToken(token).
		SetQueryParams(map[string]string{"limit": fmt.Sprintf("%d", limit), "page": fmt.Sprintf("%d", page)}).
		SetResult(&resp).
		Get(fmt.Sprintf("%s/artists/%s/albums", p.baseURL, artistID))
	if err != nil {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamTimeout, Err: err}
	}
	if r.StatusCode() != 200 {
		return nil, &apperr.UpstreamError{Provider: "primary", Kind: apperr.UpstreamStatus, Err: fmt.Errorf("status %d", r.StatusCode())}
	}
	albums := make([]*Album, 0, len(resp.Results))
	for _, a := range resp.Results {
		albums = append(albums, &Album{ID: a.ID, Name: a.Name})
	}
	return albums, nil
}

// BroadSearch returns the primary provider's PrimarySongs results as songs
// only (no albums or artists); the combined broad-search operation is
// served by a distinct adapter (see broadsearch.go).
func (p *primaryAdapter) BroadSearch(ctx context.Context, query string, page int) (*BroadResult, error) {
	sr, err := p.PrimarySongs(ctx, query, page)
	if err != nil {
		return nil, err
	}
	return &BroadResult{Songs: sr.Results}, nil
}

// FallbackSongs is not served by the primary adapter.
func (p *primaryAdapter) FallbackSongs(ctx context.Context, query string) ([]*song.Song, error) {
	return nil, nil
}
