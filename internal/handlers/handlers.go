package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/NeZlox/authorization-service/internal/apperr"
	"github.com/NeZlox/authorization-service/internal/config"
	"github.com/NeZlox/authorization-service/internal/metrics"
	"github.com/NeZlox/authorization-service/internal/middleware"
	"github.com/NeZlox/authorization-service/internal/models"
	"github.com/NeZlox/authorization-service/internal/service"
)

// Pinger is a dependency the health endpoint checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Sessions *service.SessionService
	Access   *service.AccessControl
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	users    *service.UserService
	sessions *service.SessionService
	access   *service.AccessControl
	roles    service.RoleGroups
	metrics  *metrics.Metrics
	db       Pinger
	cache    Pinger
}

// NewHandlerSet wires the HTTP surface. db and cache may be nil when the process runs
// without them; health then reports them as disabled.
func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, svc Services, m *metrics.Metrics, db, cache Pinger) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     svc.Auth,
		users:    svc.Users,
		sessions: svc.Sessions,
		access:   svc.Access,
		roles:    service.DeriveRoleGroups(cfg.IsProduction()),
		metrics:  m,
		db:       db,
		cache:    cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	authenticate := middleware.Authenticate(h.access, h.cfg.Cookies.AccessName)
	staff := middleware.RequireRoles(h.access, h.roles.Staff)
	private := middleware.RequireRoles(h.access, h.roles.Private)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/sessions", h.Login)
		auth.PUT("/sessions", h.Refresh)
		auth.DELETE("/sessions", authenticate, staff, h.Logout)
		auth.DELETE("/sessions/all", authenticate, staff, h.RevokeAll)

		users := v1.Group("/users")
		users.POST("/register", h.RegisterUser)
		users.GET("/me", authenticate, staff, h.Me)

		adminUsers := v1.Group("/users", authenticate, private)
		adminUsers.GET("", h.ListUsers)
		adminUsers.POST("", h.CreateUser)
		adminUsers.GET("/:id", h.GetUser)
		adminUsers.PUT("/:id", h.UpdateUser)
		adminUsers.DELETE("/:id", h.DeleteUser)

		sessions := v1.Group("/sessions", authenticate, private)
		sessions.GET("", h.ListSessions)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.DeleteSession)
	}
}

func (h HandlerSet) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("request_id", middleware.RequestIDFrom(c)).Msg("request failed")
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

// pageFromQuery reads page/perPage; Page.Normalize clamps whatever comes out.
func pageFromQuery(c *gin.Context) models.Page {
	limit := models.DefaultPageSize
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 {
			limit = v
		}
	}
	page := models.Page{Limit: limit}.Normalize()
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 1 {
			offset = (v - 1) * page.Limit
		}
	}
	page.Offset = offset
	return page
}

type pageResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func toPageResponse[S, T any](p models.Paginated[S], convert func(S) T) pageResponse[T] {
	items := make([]T, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, convert(item))
	}
	return pageResponse[T]{Items: items, Total: p.Total, Limit: p.Limit, Offset: p.Offset}
}
