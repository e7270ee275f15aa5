package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"songshare/internal/apperr"
)

// writeError maps a typed apperr kind to its §7 status code and writes
// the {error, message?, details?} body. Unrecognized errors become 500.
func writeError(c *gin.Context, err error) {
	var invalid *apperr.InvalidInputError
	var unauth *apperr.UnauthorizedError
	var notFound *apperr.NotFoundError

	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": invalid.Error()})
	case errors.As(err, &unauth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": unauth.Error()})
	case errors.As(err, &notFound):
		body := gin.H{"error": "not_found", "message": notFound.Error()}
		if notFound.Guidance != "" {
			body["details"] = notFound.Guidance
		}
		c.JSON(http.StatusNotFound, body)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "an unexpected error occurred"})
	}
}
