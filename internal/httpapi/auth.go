package httpapi

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"songshare/internal/apperr"
)

// TokenVerifier resolves a bearer token to a user id. Per §1/§6, full
// verification against the external identity provider is an out-of-scope
// collaborator "specified only by interface" — this module owns only the
// contract and a thin stand-in, not a production Firebase/OIDC client.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (uid string, err error)
}

// unverifiedClaimVerifier extracts the `sub` (or `uid`) claim from a JWT
// without checking its signature. It is the module's placeholder for the
// external identity provider the spec excludes from scope; grounded on
// the teacher's internal/services/apple_music_service.go, which is the
// only place in the pack that builds/parses JWTs (golang-jwt/v5).
type unverifiedClaimVerifier struct{}

// NewDevTokenVerifier returns the stand-in TokenVerifier used until a real
// identity-provider client is wired in. It trusts the token's claims
// without verifying a signature — acceptable only because real
// verification is explicitly out of this module's scope.
func NewDevTokenVerifier() TokenVerifier { return unverifiedClaimVerifier{} }

func (unverifiedClaimVerifier) VerifyToken(_ context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", &apperr.UnauthorizedError{Reason: "empty bearer token"}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", &apperr.UnauthorizedError{Reason: "malformed token: " + err.Error()}
	}
	for _, key := range []string{"uid", "sub", "user_id"} {
		if v, ok := claims[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, nil
			}
		}
	}
	return "", &apperr.UnauthorizedError{Reason: "token carries no uid/sub claim"}
}

const ctxUIDKey = "uid"

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}

// requireAuth rejects requests without a valid bearer token; on success it
// stashes the resolved uid in the gin context under ctxUIDKey.
func requireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			writeError(c, &apperr.UnauthorizedError{Reason: "missing bearer token"})
			c.Abort()
			return
		}
		uid, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(ctxUIDKey, uid)
		c.Next()
	}
}

// optionalAuth resolves a uid when a bearer token is present and valid but
// never rejects the request (§6 /api/search: "optional" auth).
func optionalAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token != "" {
			if uid, err := verifier.VerifyToken(c.Request.Context(), token); err == nil {
				c.Set(ctxUIDKey, uid)
			}
		}
		c.Next()
	}
}

func uidFromContext(c *gin.Context) string {
	v, _ := c.Get(ctxUIDKey)
	uid, _ := v.(string)
	return uid
}
