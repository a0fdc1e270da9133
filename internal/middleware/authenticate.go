package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/NeZlox/authorization-service/internal/models"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.PublicUser, error)
}

// Authenticate resolves the caller from the access-token cookie, falling back to a
// Bearer Authorization header, and stores it on the context.
func Authenticate(auth Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.Authenticate(c.Request.Context(), AccessToken(c, cookieName))
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

func AccessToken(c *gin.Context, cookieName string) string {
	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}
