package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSPolicy decides which browser origins may call the API with the token cookies attached.
type CORSPolicy struct {
	AllowedOrigins []string
	// AllowAnyOrigin reflects every Origin while AllowedOrigins is empty. Production never sets it.
	AllowAnyOrigin bool
	// Headers are accepted on top of Authorization and Content-Type, e.g. the device fingerprint.
	Headers []string
	// Expose lists response headers scripts may read, e.g. the request id.
	Expose []string
}

// CORS admits only origins the policy allows. Credentials are granted together with
// the origin, so a refused origin never receives Access-Control-Allow-Credentials.
func CORS(policy CORSPolicy) gin.HandlerFunc {
	allowAny := policy.AllowAnyOrigin && len(policy.AllowedOrigins) == 0
	origins := make(map[string]struct{}, len(policy.AllowedOrigins))
	for _, origin := range policy.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins[origin] = struct{}{}
		}
	}

	allowHeaders := headerList(append([]string{"Authorization", "Content-Type"}, policy.Headers...))
	exposeHeaders := headerList(policy.Expose)

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Add("Vary", "Origin")
			_, listed := origins[origin]
			if listed || allowAny {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Headers", allowHeaders)
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				if exposeHeaders != "" {
					h.Set("Access-Control-Expose-Headers", exposeHeaders)
				}
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func headerList(names []string) string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, http.CanonicalHeaderKey(name))
		}
	}
	return strings.Join(out, ", ")
}
