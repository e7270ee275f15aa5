package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonapi"
	"golang.org/x/oauth2/clientcredentials"

	"songshare/internal/apperr"
	"songshare/internal/song"
)

// broadSearchAdapter issues a combined songs+albums+artists query against
// a JSON:API-shaped provider, grounded on the teacher's Tidal service: a
// plain net/http client (not resty — this provider's JSON:API envelope
// needs raw body access before decoding "included" resources), OAuth2
// client-credentials auth, and a raw-request helper.
type broadSearchAdapter struct {
	httpClient  *http.Client
	tokenSource *clientcredentials.Config
	baseURL     string

	mu          sync.RWMutex
	accessToken string
	expiry      time.Time
}

// NewBroadSearchAdapter builds the broad-search client.
func NewBroadSearchAdapter(clientID, clientSecret, tokenURL, baseURL string) Adapter {
	return &broadSearchAdapter{
		httpClient: &http.Client{Timeout: LookupTimeout},
		tokenSource: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		},
		baseURL: baseURL,
	}
}

func (b *broadSearchAdapter) ensureToken(ctx context.Context) (string, error) {
	b.mu.RLock()
	if b.accessToken != "" && time.Now().Before(b.expiry) {
		tok := b.accessToken
		b.mu.RUnlock()
		return tok, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.accessToken != "" && time.Now().Before(b.expiry) {
		return b.accessToken, nil
	}
	tok, err := b.tokenSource.Token(ctx)
	if err != nil {
		return "", &apperr.UpstreamError{Provider: "broad_search", Kind: apperr.UpstreamTimeout, Err: err}
	}
	b.accessToken = tok.AccessToken
	b.expiry = tok.Expiry
	return b.accessToken, nil
}

func (b *broadSearchAdapter) rawRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	token, err := b.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	reqURL := b.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &apperr.UpstreamError{Provider: "broad_search", Kind: apperr.UpstreamParse, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.api+json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &apperr.UpstreamError{Provider: "broad_search", Kind: apperr.UpstreamTimeout, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, &apperr.UpstreamError{Provider: "broad_search", Kind: apperr.UpstreamStatus, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	body := make([]byte, 0, 4096)
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
		}
		if readErr != nil {
			break
		}
	}
	return body, nil
}

// jsonapiTrack, jsonapiAlbumRes and jsonapiArtistRes mirror the teacher's
// Tidal resource structs (jsonapi struct tags, one per resource type) so
// github.com/google/jsonapi can decode each "included" member directly
// instead of hand-rolling attribute-map lookups.
type jsonapiTrack struct {
	ID         string  `jsonapi:"primary,songs"`
	Title      string  `jsonapi:"attr,title"`
	Language   string  `jsonapi:"attr,language"`
	ArtistName string  `jsonapi:"attr,artistName"`
	Duration   int     `jsonapi:"attr,duration"`
	Popularity float64 `jsonapi:"attr,popularity"`
}

type jsonapiAlbumRes struct {
	ID    string `jsonapi:"primary,albums"`
	Title string `jsonapi:"attr,title"`
}

type jsonapiArtistRes struct {
	ID   string `jsonapi:"primary,artists"`
	Name string `jsonapi:"attr,name"`
}

// rawResource is the minimal envelope needed to read a resource's "type"
// before dispatching it to the right typed jsonapi.UnmarshalPayload call,
// and to re-wrap it as a standalone single-resource document (jsonapi's
// decoder expects one "data" object, not a bare "included" member).
type rawResource struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes json.RawMessage `json:"attributes"`
}

type jsonapiSearchResponse struct {
	Included []rawResource `json:"included"`
}

func wrapAsDocument(res rawResource) []byte {
	doc, _ := json.Marshal(map[string]any{"data": res})
	return doc
}

func (b *broadSearchAdapter) BroadSearch(ctx context.Context, query string, page int) (*BroadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, LookupTimeout)
	defer cancel()

	body, err := b.rawRequest(ctx, "/search", url.Values{
		"query":       {query},
		"include":     {"songs,albums,artists"},
		"countryCode": {"US"},
		"page":        {fmt.Sprintf("%d", page)},
	})
	if err != nil {
		return nil, err
	}

	var resp jsonapiSearchResponse
	if jsonErr := json.Unmarshal(body, &resp); jsonErr != nil {
		return nil, &apperr.UpstreamError{Provider: "broad_search", Kind: apperr.UpstreamParse, Err: jsonErr}
	}

	result := &BroadResult{}
	for _, res := range resp.Included {
		doc := wrapAsDocument(res)
		switch res.Type {
		case "songs", "tracks":
			var track jsonapiTrack
			if err := jsonapi.UnmarshalPayload(bytes.NewReader(doc), &track); err != nil {
				continue
			}
			if s := songFromTrack(track); s != nil {
				result.Songs = append(result.Songs, s)
			}
		case "albums":
			var album jsonapiAlbumRes
			if err := jsonapi.UnmarshalPayload(bytes.NewReader(doc), &album); err != nil {
				continue
			}
			if album.ID != "" && album.Title != "" {
				result.Albums = append(result.Albums, &Album{ID: album.ID, Name: album.Title})
			}
		case "artists":
			var artist jsonapiArtistRes
			if err := jsonapi.UnmarshalPayload(bytes.NewReader(doc), &artist); err != nil {
				continue
			}
			if artist.ID != "" && artist.Name != "" {
				result.Artists = append(result.Artists, &ArtistProfile{ID: artist.ID, Name: artist.Name})
			}
		}
	}
	return result, nil
}

func songFromTrack(t jsonapiTrack) *song.Song {
	if t.ID == "" || t.Title == "" {
		return nil
	}
	s := &song.Song{ID: t.ID, Name: t.Title, Language: t.Language}
	if t.Duration > 0 {
		d := t.Duration
		s.DurationSec = &d
	}
	if t.Popularity > 0 {
		pop := t.Popularity
		s.Popularity = &pop
	}
	for i, name := range strings.Split(t.ArtistName, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		s.Artists.Primary = append(s.Artists.Primary, song.Artist{ID: fmt.Sprintf("%s-a%d", t.ID, i), Name: name})
	}
	return s
}

// The remaining operations aren't exercised against the broad-search
// provider by the Smart Search Engine; it serves BroadSearch only.
func (b *broadSearchAdapter) PrimarySongs(ctx context.Context, query string, page int) (*Page, error) {
	return nil, nil
}
func (b *broadSearchAdapter) FallbackSongs(ctx context.Context, query string) ([]*song.Song, error) {
	return nil, nil
}
func (b *broadSearchAdapter) SongByID(ctx context.Context, id string) (*song.Song, error) {
	return nil, nil
}
func (b *broadSearchAdapter) AlbumByID(ctx context.Context, id string) (*Album, error) {
	return nil, nil
}
func (b *broadSearchAdapter) AlbumsByQuery(ctx context.Context, query string) ([]*Album, error) {
	return nil, nil
}
func (b *broadSearchAdapter) ArtistsByQuery(ctx context.Context, query string) ([]*ArtistProfile, error) {
	return nil, nil
}
func (b *broadSearchAdapter) ArtistsByLanguage(ctx context.Context, language string) ([]*ArtistProfile, error) {
	return nil, nil
}
func (b *broadSearchAdapter) ArtistAlbums(ctx context.Context, artistID string, limit, page int) ([]*Album, error) {
	return nil, nil
}
