package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadSearch_DecodesJSONAPIIncludedResources(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	searchServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/vnd.api+json")
		_, _ = w.Write([]byte(`{
			"data": [],
			"included": [
				{"id": "s1", "type": "songs", "attributes": {"title": "Believer", "language": "english", "artistName": "Imagine Dragons", "duration": 204, "popularity": 0.8}},
				{"id": "al1", "type": "albums", "attributes": {"title": "Evolve"}},
				{"id": "ar1", "type": "artists", "attributes": {"name": "Imagine Dragons"}}
			]
		}`))
	}))
	defer searchServer.Close()

	adapter := &broadSearchAdapter{
		httpClient: &http.Client{},
		tokenSource: &clientcredentials.Config{
			ClientID:     "id",
			ClientSecret: "secret",
			TokenURL:     tokenServer.URL,
		},
		baseURL: searchServer.URL,
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenServer.Client())
	result, err := adapter.BroadSearch(ctx, "believer", 1)
	require.NoError(t, err)
	require.Len(t, result.Songs, 1)
	assert.Equal(t, "Believer", result.Songs[0].Name)
	assert.Equal(t, "english", result.Songs[0].Language)
	require.Len(t, result.Songs[0].Artists.Primary, 1)
	assert.Equal(t, "Imagine Dragons", result.Songs[0].Artists.Primary[0].Name)

	require.Len(t, result.Albums, 1)
	assert.Equal(t, "Evolve", result.Albums[0].Name)

	require.Len(t, result.Artists, 1)
	assert.Equal(t, "Imagine Dragons", result.Artists[0].Name)
}
