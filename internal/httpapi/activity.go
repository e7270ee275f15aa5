package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"songshare/internal/apperr"
	"songshare/internal/profile"
)

type postActivityRequest struct {
	SongID      string `json:"songId"`
	SongName    string `json:"songName"`
	Artist      string `json:"artist"`
	Language    string `json:"language"`
	Genre       string `json:"genre"`
	Query       string `json:"query"`
	DurationSec *int   `json:"duration"`
	SkipTimeSec *int   `json:"skipTime"`
}

// handlePostActivity implements POST /api/activity/:type (§6): type must
// be one of search, play, skip, search_click; songId is required for
// play/skip.
func (s *Server) handlePostActivity(c *gin.Context) {
	eventType := profile.EventType(c.Param("type"))
	if !eventType.Valid() {
		writeError(c, &apperr.InvalidInputError{Field: "type", Message: "must be one of search, play, skip, search_click"})
		return
	}

	var req postActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &apperr.InvalidInputError{Message: err.Error()})
		return
	}
	if (eventType == profile.EventPlay || eventType == profile.EventSkip) && req.SongID == "" {
		writeError(c, &apperr.InvalidInputError{Field: "songId", Message: "required for play/skip events"})
		return
	}

	uid := uidFromContext(c)
	event := profile.ActivityEvent{
		UID:         uid,
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		SongID:      req.SongID,
		SongName:    req.SongName,
		Artist:      req.Artist,
		Language:    req.Language,
		Genre:       req.Genre,
		Query:       req.Query,
		DurationSec: req.DurationSec,
		SkipTimeSec: req.SkipTimeSec,
	}

	if err := s.store.AppendActivity(c.Request.Context(), uid, event); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": event})
}

// handleActivityHistory implements GET /api/activity/history (§6).
func (s *Server) handleActivityHistory(c *gin.Context) {
	uid := uidFromContext(c)
	eventType := profile.EventType(c.Query("type"))
	if eventType != "" && !eventType.Valid() {
		writeError(c, &apperr.InvalidInputError{Field: "type", Message: "must be one of search, play, skip, search_click"})
		return
	}
	limit := clampQueryInt(c, "limit", 50, 1, 500)

	events, err := s.store.History(c.Request.Context(), uid, eventType, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": events})
}
