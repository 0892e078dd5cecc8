package handler

import (
	"camerashop/backend/internal/logging"

	"github.com/gin-gonic/gin"
)

// ServeWebSocket upgrades the request and hands the socket to the hub. A
// missing or bad ?token= never fails the upgrade; the STOMP CONNECT frame
// is where a bad token is refused.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	if err := h.Hub.ServeWS(c.Writer, c.Request, h.upgrader); err != nil {
		// The upgrader has already answered the request.
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
	}
}
