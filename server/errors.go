package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/animalia-app/iam-service/store"
)

// writeError maps store taxonomy errors onto HTTP statuses. Anything outside
// the taxonomy is a 500 with a generic body so internals never leak.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": err.Error()})
	case errors.Is(err, store.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "error_description": err.Error()})
	case errors.Is(err, store.ErrDependency):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dependency_unavailable", "error_description": "a backing dependency is unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
	}
}
