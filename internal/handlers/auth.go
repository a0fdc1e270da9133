package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NeZlox/authorization-service/internal/apperr"
	"github.com/NeZlox/authorization-service/internal/middleware"
	"github.com/NeZlox/authorization-service/internal/service"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Wrap(apperr.ErrValidation, err))
		return
	}

	user, pair, err := h.auth.Login(c.Request.Context(), service.Credentials{
		Email:    req.Email,
		Password: req.Password,
	}, h.clientContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, newUserResponse(user))
}

// Refresh rotates the refresh cookie. The user id travels in the body because the
// access token may already have expired.
func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Wrap(apperr.ErrValidation, err))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.UserID, h.clientContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Logout(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	if err := h.auth.RevokeSession(c.Request.Context(), user.ID, h.clientContext(c)); err != nil {
		h.respondError(c, err)
		return
	}

	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) RevokeAll(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	if err := h.auth.RevokeAllSessions(c.Request.Context(), user.ID); err != nil {
		h.respondError(c, err)
		return
	}

	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}
