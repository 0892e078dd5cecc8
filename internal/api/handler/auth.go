package handler

import (
	"net/http"

	"camerashop/backend/internal/auth"
	"camerashop/backend/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NewSession hands a guest a fresh session key for its chat room.
func (h *Handler) NewSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessionId": uuid.NewString()})
}

// Logout revokes the caller's bearer token until it expires.
func (h *Handler) Logout(c *gin.Context) {
	token := c.GetString(auth.ContextToken)
	if err := h.Guard.Revoke(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}
	userID, _ := auth.UserIDFrom(c)
	logging.Ctx(c.Request.Context()).Info().Uint("user_id", userID).Msg("token revoked")
	c.Status(http.StatusNoContent)
}
