package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sessionhistory/internal/observability"
	"sessionhistory/internal/service/history"
)

// writeError maps a service error to its HTTP status. Unexpected errors are
// logged and never echoed to the client.
func writeError(c *gin.Context, err error, notFound string) {
	var verr *history.ValidationError
	switch {
	case errors.Is(err, history.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": verr.Fields})
	case errors.Is(err, history.ErrNotFoundOrForbidden):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	default:
		observability.LoggerFromContext(c.Request.Context()).Error("request failed",
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
