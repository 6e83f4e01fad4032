// admin_only.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminOnly va después de AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not authorized as an admin."})
			return
		}
		c.Next()
	}
}
