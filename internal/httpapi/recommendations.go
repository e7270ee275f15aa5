package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"songshare/internal/apperr"
	"songshare/internal/recommend"
)

// handleRecommendations implements GET /api/recommendations (§6): 404 if
// the user has no saved preferences, default limit 50 clamped to 100.
func (s *Server) handleRecommendations(c *gin.Context) {
	uid := uidFromContext(c)
	prefs, err := s.store.GetPreferences(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	if prefs == nil {
		writeError(c, &apperr.NotFoundError{Resource: "preferences", Guidance: "save preferences via POST /api/user/preferences first"})
		return
	}

	limit := clampQueryInt(c, "limit", 50, 1, 100)
	songs, err := s.recGen.GenerateRecommendations(c.Request.Context(), uid, prefs, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(songs), "data": songs})
}

type nextTrackRequest struct {
	CurrentSong currentSongPayload `json:"currentSong" binding:"required"`
	Limit       int                `json:"limit"`
}

type currentSongPayload struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Language    string   `json:"language"`
	Genre       string   `json:"genre"`
	ArtistIDs   []string `json:"artistIds"`
	ArtistNames []string `json:"artistNames"`
	AlbumID     string   `json:"albumId"`
	AlbumName   string   `json:"albumName"`
	Year        *int     `json:"year"`
	Popularity  *float64 `json:"popularity"`
}

func (p currentSongPayload) toCurrentSong() *recommend.CurrentSong {
	return &recommend.CurrentSong{
		ID: p.ID, Title: p.Title, Language: p.Language, Genre: p.Genre,
		ArtistIDs: p.ArtistIDs, ArtistNames: p.ArtistNames,
		AlbumID: p.AlbumID, AlbumName: p.AlbumName,
		Year: p.Year, Popularity: p.Popularity,
	}
}

// handleNextTrack implements POST /api/recommendations/next (§6): limit
// defaults to 20, hard-capped at 20.
func (s *Server) handleNextTrack(c *gin.Context) {
	var req nextTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &apperr.InvalidInputError{Message: err.Error()})
		return
	}
	if req.CurrentSong.ID == "" && req.CurrentSong.Title == "" {
		writeError(c, &apperr.InvalidInputError{Field: "currentSong", Message: "must carry at least id or title"})
		return
	}

	limit := req.Limit
	if limit <= 0 || limit > 20 {
		limit = 20
	}

	uid := uidFromContext(c)
	songs, err := s.recGen.GenerateNextTrack(c.Request.Context(), uid, req.CurrentSong.toCurrentSong(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(songs), "data": songs})
}
