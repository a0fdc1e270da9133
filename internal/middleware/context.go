package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/NeZlox/authorization-service/internal/apperr"
	"github.com/NeZlox/authorization-service/internal/models"
)

const currentUserKey = "current_user"

// CurrentUser returns the user resolved by Authenticate.
func CurrentUser(c *gin.Context) (models.PublicUser, bool) {
	val, exists := c.Get(currentUserKey)
	if !exists {
		return models.PublicUser{}, false
	}
	user, ok := val.(models.PublicUser)
	return user, ok
}

// RequestIDFrom returns the id assigned by RequestID, or "" outside that middleware.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Message(err)})
}
