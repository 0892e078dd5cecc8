package handler

import (
	"errors"
	"net/http"

	"camerashop/backend/internal/auth"
	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/storage"
	"camerashop/backend/internal/validation"

	"github.com/gin-gonic/gin"
)

// respondError maps err onto a status and an {"error": ...} body.
func respondError(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": verr.Fields})
	case errors.Is(err, storage.ErrRoomNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Chat room not found"})
	case errors.Is(err, storage.ErrMessageNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Message not found"})
	case errors.Is(err, storage.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenRevoked):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
	default:
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
