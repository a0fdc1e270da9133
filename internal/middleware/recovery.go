package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/NeZlox/authorization-service/internal/apperr"
)

func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithLevel(zerolog.FatalLevel).
					Interface("panic", r).
					Str("request_id", RequestIDFrom(c)).
					Msg("panic recovered")
				abortWithError(c, apperr.ErrInternal)
			}
		}()
		c.Next()
	}
}
