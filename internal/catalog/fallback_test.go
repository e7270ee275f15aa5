package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackRecordNormalize_DropsMissingIDOrName(t *testing.T) {
	cases := []struct {
		name string
		rec  fallbackRecord
		want bool
	}{
		{"missing id", fallbackRecord{Song: "Believer"}, false},
		{"missing name", fallbackRecord{ID: "123"}, false},
		{"complete", fallbackRecord{ID: "123", Song: "Believer"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.rec.normalize()
			if tc.want {
				require.NotNil(t, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestFallbackRecordNormalize_QualityTagging(t *testing.T) {
	rec := fallbackRecord{
		ID:            "1",
		Song:          "Believer",
		PrimaryArtist: "Imagine Dragons, X Ambassadors",
		MediaURL:      "https://cdn.example/track.mp3",
		Image:         "https://cdn.example/art.jpg",
	}
	s := rec.normalize()
	require.NotNil(t, s)
	require.Len(t, s.DownloadURLs, 1)
	assert.Equal(t, "320kbps", s.DownloadURLs[0].Quality)

	require.Len(t, s.ImageURLs, 3)
	qualities := []string{s.ImageURLs[0].Quality, s.ImageURLs[1].Quality, s.ImageURLs[2].Quality}
	assert.Equal(t, []string{"50x50", "150x150", "500x500"}, qualities)
	for _, img := range s.ImageURLs {
		assert.Equal(t, "https://cdn.example/art.jpg", img.URL)
	}

	assert.Len(t, s.Artists.Primary, 2)
	assert.Equal(t, "Imagine Dragons", s.Artists.Primary[0].Name)
}
