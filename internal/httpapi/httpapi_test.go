package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songshare/internal/catalog"
	"songshare/internal/profile"
	"songshare/internal/recommend"
	"songshare/internal/rerank"
	"songshare/internal/search"
	"songshare/internal/song"
	"songshare/internal/songindex"
)

// fakeAdapter serves a fixed catalog regardless of query, for deterministic
// handler tests.
type fakeAdapter struct{ songs []*song.Song }

func (a *fakeAdapter) PrimarySongs(ctx context.Context, query string, page int) (*catalog.Page, error) {
	return &catalog.Page{Results: a.songs}, nil
}
func (a *fakeAdapter) FallbackSongs(ctx context.Context, query string) ([]*song.Song, error) {
	return nil, nil
}
func (a *fakeAdapter) BroadSearch(ctx context.Context, query string, page int) (*catalog.BroadResult, error) {
	return &catalog.BroadResult{Songs: a.songs}, nil
}
func (a *fakeAdapter) SongByID(ctx context.Context, id string) (*song.Song, error) {
	for _, s := range a.songs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}
func (a *fakeAdapter) AlbumByID(ctx context.Context, id string) (*catalog.Album, error) { return nil, nil }
func (a *fakeAdapter) AlbumsByQuery(ctx context.Context, query string) ([]*catalog.Album, error) {
	return nil, nil
}
func (a *fakeAdapter) ArtistsByQuery(ctx context.Context, query string) ([]*catalog.ArtistProfile, error) {
	return nil, nil
}
func (a *fakeAdapter) ArtistsByLanguage(ctx context.Context, language string) ([]*catalog.ArtistProfile, error) {
	return []*catalog.ArtistProfile{{ID: "ar1", Name: "Singer"}}, nil
}
func (a *fakeAdapter) ArtistAlbums(ctx context.Context, artistID string, limit, page int) ([]*catalog.Album, error) {
	return nil, nil
}

func fixtureSongs() []*song.Song {
	return []*song.Song{
		{ID: "s1", Name: "Only Song", Language: "hindi",
			Artists: song.Artists{Primary: []song.Artist{{ID: "a1", Name: "Singer"}}}},
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	adapter := &fakeAdapter{songs: fixtureSongs()}
	idx := songindex.New(1000)
	engine := search.New(idx, adapter, adapter, adapter)
	store := profile.NewMemoryStore()
	rr := rerank.New(store)
	recGen := recommend.New(store, engine, rr, adapter)

	srv := NewServer(engine, rr, recGen, store, adapter, NewDevTokenVerifier())
	r := gin.New()
	srv.RegisterRoutes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return srv, ts
}

func bearerFor(t *testing.T, uid string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": uid})
	signed, err := tok.SignedString([]byte("test-signing-key-not-verified"))
	require.NoError(t, err)
	return signed
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
}

func TestHealth_RedirectsToHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/healthz", resp.Header.Get("Location"))
}

func TestSearch_MissingQuery_BadRequest(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearch_ReturnsMatchedSongs(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/search?query=Only+Song")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Songs []*song.Song `json:"songs"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Data.Songs)
}

func TestPreferences_RequiresAuth(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/user/preferences")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPreferences_GetAbsent_NotFound(t *testing.T) {
	_, ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/user/preferences", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bearerFor(t, "u1"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecommendations_NoPreferences_NotFound(t *testing.T) {
	_, ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/recommendations", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bearerFor(t, "u1"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActivity_InvalidType_BadRequest(t *testing.T) {
	_, ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/activity/bogus", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bearerFor(t, "u1"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
