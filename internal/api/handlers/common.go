package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardvault/backend/internal/models"
)

// currentUser returns the authenticated user id for the request. The auth
// protocol itself lives in front of this service; an empty id means no
// active session.
func currentUser(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

// abortWithError maps the error taxonomy onto HTTP statuses and writes the
// standard error body.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrAuthRequired):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrBackend):
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
