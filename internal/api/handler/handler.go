// Package handler exposes the chat core over HTTP and upgrades /ws to a
// STOMP-over-WebSocket session.
package handler

import (
	"net/http"
	"strings"

	"camerashop/backend/internal/auth"
	"camerashop/backend/internal/chat"
	"camerashop/backend/internal/chathub"
	"camerashop/backend/internal/models"
	"camerashop/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler holds what the routes need.
type Handler struct {
	Hub   *chathub.ManagerService
	Chat  *chat.Service
	Guard *auth.Guard
	Store storage.Storage

	upgrader *websocket.Upgrader
}

func NewHandler(hub *chathub.ManagerService, chatSvc *chat.Service, guard *auth.Guard, store storage.Storage, allowedOrigins []string) *Handler {
	return &Handler{
		Hub:   hub,
		Chat:  chatSvc,
		Guard: guard,
		Store: store,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.Use(RequestContext())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", h.ServeWebSocket)

	r.POST("/chats/session", h.NewSession)
	r.POST("/chat/:id/seen", h.MarkSeen)
	r.GET("/chats/session/:sessionId/messages", h.SessionHistory)
	r.GET("/chats/me/messages", auth.RequireAuth(h.Guard), h.MyHistory)

	r.POST("/api/v1/auth/logout", auth.RequireAuth(h.Guard), h.Logout)

	admin := r.Group("/api/admin", auth.RequireAuth(h.Guard), auth.RequireRole(models.RoleAdmin))
	admin.GET("/chats", h.ListRooms)
	admin.GET("/chats/session/:sessionId/messages", h.AdminSessionHistory)
}

// Healthz pings the database.
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// originChecker allows requests without an Origin header, any listed
// origin, and everything when "*" is listed.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	_, all := set["*"]
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || all {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}
