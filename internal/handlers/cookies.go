package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NeZlox/authorization-service/internal/middleware"
	"github.com/NeZlox/authorization-service/internal/models"
)

func (h HandlerSet) clientContext(c *gin.Context) models.ClientContext {
	refresh, _ := c.Cookie(h.cfg.Cookies.RefreshName)
	return models.ClientContext{
		IPAddress:    clientIP(c),
		UserAgent:    c.GetHeader("User-Agent"),
		Fingerprint:  c.GetHeader(h.cfg.HTTP.FingerprintHeaderName()),
		AccessToken:  middleware.AccessToken(c, h.cfg.Cookies.AccessName),
		RefreshToken: refresh,
	}
}

// clientIP prefers the first hop of X-Forwarded-For.
func clientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}

func (h HandlerSet) setAuthCookies(c *gin.Context, pair models.TokenPair) {
	http.SetCookie(c.Writer, h.cookie(h.cfg.Cookies.AccessName, pair.AccessToken, h.cfg.Security.JWTAccessTTL))
	http.SetCookie(c.Writer, h.cookie(h.cfg.Cookies.RefreshName, pair.RefreshToken, h.cfg.Security.JWTRefreshTTL))
}

func (h HandlerSet) clearAuthCookies(c *gin.Context) {
	http.SetCookie(c.Writer, h.cookie(h.cfg.Cookies.AccessName, "", -1))
	http.SetCookie(c.Writer, h.cookie(h.cfg.Cookies.RefreshName, "", -1))
}

// cookie builds an HttpOnly cookie. A negative ttl produces a deletion cookie (Max-Age=0).
func (h HandlerSet) cookie(name, value string, ttl time.Duration) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if h.cfg.SecureCookies() {
		sameSite = http.SameSiteNoneMode
	}

	maxAge := -1
	if ttl >= 0 {
		maxAge = int(ttl.Seconds())
	}

	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cfg.Cookies.Path,
		Domain:   h.cfg.Cookies.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies(),
		SameSite: sameSite,
	}
}
