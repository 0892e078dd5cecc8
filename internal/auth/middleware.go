package auth

import (
	"net/http"
	"strings"

	"camerashop/backend/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "auth.userID"
	ContextRole   = "auth.role"
	ContextToken  = "auth.token"
)

// BearerToken extracts the token from an "Authorization: Bearer" value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// stores the caller's id, role and token in the gin context.
func RequireAuth(g *Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}
		claims, err := g.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		c.Set(ContextUserID, userID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextToken, token)
		c.Next()
	}
}

// RequireRole must run after RequireAuth; it answers 403 for other roles.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if r, _ := c.Get(ContextRole); r != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}

// UserIDFrom returns the id stored by RequireAuth.
func UserIDFrom(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
