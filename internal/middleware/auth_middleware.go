// auth_middleware.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

// Claves del contexto de gin que deja el middleware.
const (
	ContextUserID   = "userID"
	ContextUserName = "userName"
	ContextAuthUser = "authUser"

	TokenCookie = "jwt"
)

// TokenValidator es lo que el middleware necesita del AuthService.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*service.AuthUser, error)
}

// Middleware que valida el token (cookie jwt o header Bearer) y guarda la
// info del usuario en el contexto
func AuthMiddleware(auth TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, no token."})
			return
		}

		user, err := auth.ValidateToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrUnauthorized) {
				_ = c.Error(err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, token failed."})
			return
		}

		// Guardamos los datos del usuario en el contexto
		c.Set(ContextUserID, user.ID.Hex())
		c.Set(ContextUserName, user.Username)
		c.Set(ContextAuthUser, user)
		c.Next()
	}
}

// CurrentUser devuelve el usuario autenticado o nil.
func CurrentUser(c *gin.Context) *service.AuthUser {
	v, ok := c.Get(ContextAuthUser)
	if !ok {
		return nil
	}
	u, _ := v.(*service.AuthUser)
	return u
}

func tokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
