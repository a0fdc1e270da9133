package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NeZlox/authorization-service/internal/models"
	"github.com/NeZlox/authorization-service/internal/service"
)

// sessionResponse never carries the refresh hash.
type sessionResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Fingerprint string    `json:"fingerprint"`
	UserAgent   string    `json:"userAgent"`
	IPAddress   string    `json:"ipAddress"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newSessionResponse(session models.Session) sessionResponse {
	return sessionResponse{
		ID:          session.ID,
		UserID:      session.UserID,
		Fingerprint: session.Fingerprint,
		UserAgent:   session.UserAgent,
		IPAddress:   session.IPAddress,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	query := service.SessionQuery{
		UserID:     c.Query("userId"),
		ActiveOnly: c.Query("active") == "true",
	}

	page, err := h.sessions.List(c.Request.Context(), query, pageFromQuery(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPageResponse(page, newSessionResponse))
}

func (h HandlerSet) GetSession(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}

func (h HandlerSet) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
