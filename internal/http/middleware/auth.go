// Package middleware carries the cross-cutting gin handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rideway/internal/auth"
)

const identityKey = "identity"

// Auth verifies the bearer token and stashes the caller identity on the
// request context. Requests without a valid token never reach the handler.
func Auth(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		ident, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// RequireRole rejects callers whose role does not match. Mount after Auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if Caller(c).Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// Caller returns the authenticated identity set by Auth. Zero value when
// the route is unauthenticated.
func Caller(c *gin.Context) auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}
	}
	ident, _ := v.(auth.Identity)
	return ident
}
