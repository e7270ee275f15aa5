package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"songshare/internal/apperr"
	"songshare/internal/rerank"
	"songshare/internal/search"
)

// handleSearch implements GET /api/search (§6).
func (s *Server) handleSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		writeError(c, &apperr.InvalidInputError{Field: "query", Message: "is required"})
		return
	}

	page := clampQueryInt(c, "page", 1, 1, 1000)
	limit := clampQueryInt(c, "limit", 20, 10, 20)
	_ = page // the Smart Search Engine doesn't paginate; page is accepted for API compatibility only

	languages := splitCSV(c.Query("languages"))
	preferredSet := make(map[string]bool, len(languages))
	for _, l := range languages {
		preferredSet[l] = true
	}

	songs, err := s.search.SmartSearch(c.Request.Context(), query, search.Options{PreferredLanguages: languages})
	if err != nil {
		writeError(c, err)
		return
	}

	if uid := uidFromContext(c); uid != "" {
		reranked, rerr := s.reranker.Rerank(c.Request.Context(), uid, songs, rerank.Options{Query: query, PreferredLanguages: languages, Mode: "search"})
		if rerr != nil {
			// §7: reranker failures fall back to the rule-scored list rather
			// than failing the request.
			slog.Warn("reranker failed, serving rule-scored search results", "query", query, "error", rerr)
		} else {
			songs = reranked
		}
	}

	if len(songs) > limit {
		songs = songs[:limit]
	}

	var topResult interface{}
	if len(songs) > 0 {
		topResult = songs[0]
	}

	albums, err := s.catalog.AlbumsByQuery(c.Request.Context(), query)
	if err != nil {
		albums = nil
	}
	artists, err := s.catalog.ArtistsByQuery(c.Request.Context(), query)
	if err != nil {
		artists = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"songs":                 songs,
			"albums":                albums,
			"artists":               artists,
			"topResult":             topResult,
			"relatedLanguages":      relatedLanguages(songs, preferredSet),
			"albumLanguageSections": buildLanguageSections(songs),
			"sections":              buildLanguageSections(songs),
		},
	})
}

func clampQueryInt(c *gin.Context, name string, def, min, max int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
