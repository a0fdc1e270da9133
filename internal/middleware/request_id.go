package middleware

import (
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	DefaultRequestIDHeader = "X-Request-Id"

	requestIDKey    = "request_id"
	maxRequestIDLen = 128
)

// RequestID propagates the caller's correlation id from header, falling back to
// DefaultRequestIDHeader. Ids that are absent, oversized or carry non-printable
// characters are replaced by a fresh uuid before they reach the access log.
func RequestID(header string) gin.HandlerFunc {
	if header == "" {
		header = DefaultRequestIDHeader
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader(header)
		if !usableRequestID(requestID) {
			requestID = uuid.NewString()
		}

		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(header, requestID)

		c.Next()
	}
}

func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	return strings.IndexFunc(id, func(r rune) bool { return !unicode.IsPrint(r) }) < 0
}
