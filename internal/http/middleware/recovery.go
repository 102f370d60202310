package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideway/internal/logger"
)

// Recovery turns panics into 500s instead of dropped connections.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					logger.String("path", c.Request.URL.Path),
					logger.Any("panic", r),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}
