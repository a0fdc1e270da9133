package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/NeZlox/authorization-service/internal/apperr"
	"github.com/NeZlox/authorization-service/internal/models"
)

type Authorizer interface {
	Authorize(user models.PublicUser, allowed []models.UserRole) (models.PublicUser, error)
}

// RequireRoles admits the current user only when its role is in allowed. It must run
// after Authenticate.
func RequireRoles(authz Authorizer, allowed []models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortWithError(c, apperr.ErrTokenAbsent)
			return
		}

		if _, err := authz.Authorize(user, allowed); err != nil {
			abortWithError(c, err)
			return
		}

		c.Next()
	}
}
