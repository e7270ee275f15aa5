// Package httpapi is the HTTP Surface (§2, §6): thin gin handlers doing
// input validation, language resolution, limit clamping and JSON
// encoding in front of the Smart Search Engine, Personalized Reranker,
// Recommendation Generator and Activity & Profile Store. Grounded on the
// teacher's internal/handlers package (gin.Context handler shape,
// gin.H JSON envelopes) and internal/services/apple_music_service.go for
// the bearer-token/JWT handling style.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"songshare/internal/catalog"
	"songshare/internal/profile"
	"songshare/internal/recommend"
	"songshare/internal/rerank"
	"songshare/internal/search"
)

// Server wires the HTTP Surface to the components it fronts. It owns no
// business logic beyond request shaping and response encoding.
type Server struct {
	search   *search.Engine
	reranker *rerank.Reranker
	recGen   *recommend.Generator
	store    profile.Store
	catalog  catalog.Adapter
	verifier TokenVerifier
}

// NewServer builds the HTTP Surface over its already-constructed
// collaborators.
func NewServer(searchEngine *search.Engine, reranker *rerank.Reranker, recGen *recommend.Generator, store profile.Store, catalogAdapter catalog.Adapter, verifier TokenVerifier) *Server {
	if verifier == nil {
		verifier = NewDevTokenVerifier()
	}
	return &Server{search: searchEngine, reranker: reranker, recGen: recGen, store: store, catalog: catalogAdapter, verifier: verifier}
}

// RegisterRoutes attaches every §6 route to r.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", s.handleHealthz)
	r.GET("/health", func(c *gin.Context) { c.Redirect(http.StatusFound, "/healthz") })

	r.GET("/api/search", optionalAuth(s.verifier), s.handleSearch)
	r.GET("/api/songs/:id", s.handleSongByID)
	r.GET("/api/albums", s.handleAlbums)
	r.GET("/api/artists/by-language", s.handleArtistsByLanguage)
	r.GET("/api/artists/:id/albums", s.handleArtistAlbums)

	auth := r.Group("/", requireAuth(s.verifier))
	auth.POST("/api/user/preferences", s.handleSavePreferences)
	auth.GET("/api/user/preferences", s.handleGetPreferences)
	auth.POST("/api/activity/:type", s.handlePostActivity)
	auth.GET("/api/activity/history", s.handleActivityHistory)
	auth.GET("/api/recommendations", s.handleRecommendations)
	auth.POST("/api/recommendations/next", s.handleNextTrack)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"service":   "songshare-core",
		"timestamp": time.Now().UTC(),
	})
}
