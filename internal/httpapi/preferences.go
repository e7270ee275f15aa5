package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"songshare/internal/apperr"
	"songshare/internal/profile"
)

type savePreferencesRequest struct {
	Languages       []string                  `json:"languages"`
	FavoriteArtists []profile.FavoriteArtist `json:"favoriteArtists"`
}

// handleSavePreferences implements POST /api/user/preferences (§6): at
// least one of languages/favoriteArtists is required.
func (s *Server) handleSavePreferences(c *gin.Context) {
	var req savePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &apperr.InvalidInputError{Message: err.Error()})
		return
	}
	if len(req.Languages) == 0 && len(req.FavoriteArtists) == 0 {
		writeError(c, &apperr.InvalidInputError{Message: "at least one of languages or favoriteArtists is required"})
		return
	}

	uid := uidFromContext(c)
	existing, err := s.store.GetPreferences(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}

	prefs := existing
	if prefs == nil {
		prefs = &profile.UserPreferences{UID: uid, CreatedAt: time.Now().UTC()}
	}
	if len(req.Languages) > 0 {
		prefs.Languages = req.Languages
	}
	if len(req.FavoriteArtists) > 0 {
		prefs.FavoriteArtists = req.FavoriteArtists
	}
	prefs.UpdatedAt = time.Now().UTC()

	if err := s.store.SavePreferences(c.Request.Context(), uid, prefs); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "preferences saved", "data": prefs})
}

// handleGetPreferences implements GET /api/user/preferences (§6): 404 when
// the user has never saved preferences.
func (s *Server) handleGetPreferences(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{"success": true, "data": prefs})
}
