package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"songshare/internal/apperr"
)

// handleSongByID implements GET /api/songs/:id (§6: upstream passthrough).
func (s *Server) handleSongByID(c *gin.Context) {
	id := c.Param("id")
	song, err := s.catalog.SongByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if song == nil {
		writeError(c, &apperr.NotFoundError{Resource: "song"})
		return
	}
	c.JSON(http.StatusOK, song)
}

// handleAlbums implements GET /api/albums (§6: `id` XOR `query`).
func (s *Server) handleAlbums(c *gin.Context) {
	id := c.Query("id")
	query := c.Query("query")
	switch {
	case id != "" && query != "":
		writeError(c, &apperr.InvalidInputError{Field: "id/query", Message: "provide exactly one of id or query"})
	case id != "":
		album, err := s.catalog.AlbumByID(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		if album == nil {
			writeError(c, &apperr.NotFoundError{Resource: "album"})
			return
		}
		c.JSON(http.StatusOK, album)
	case query != "":
		albums, err := s.catalog.AlbumsByQuery(c.Request.Context(), query)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, albums)
	default:
		writeError(c, &apperr.InvalidInputError{Field: "id/query", Message: "one of id or query is required"})
	}
}

// handleArtistsByLanguage implements GET /api/artists/by-language (§6).
func (s *Server) handleArtistsByLanguage(c *gin.Context) {
	language := c.Query("language")
	if language == "" {
		writeError(c, &apperr.InvalidInputError{Field: "language", Message: "is required"})
		return
	}
	artists, err := s.catalog.ArtistsByLanguage(c.Request.Context(), language)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(artists), "data": artists})
}

// handleArtistAlbums implements GET /api/artists/:id/albums (§6).
func (s *Server) handleArtistAlbums(c *gin.Context) {
	id := c.Param("id")
	limit := clampQueryInt(c, "limit", 20, 1, 50)
	page := clampQueryInt(c, "page", 1, 1, 1000)
	albums, err := s.catalog.ArtistAlbums(c.Request.Context(), id, limit, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, albums)
}
