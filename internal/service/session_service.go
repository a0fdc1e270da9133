package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/NeZlox/authorization-service/internal/apperr"
	"github.com/NeZlox/authorization-service/internal/config"
	"github.com/NeZlox/authorization-service/internal/metrics"
	"github.com/NeZlox/authorization-service/internal/models"
	"github.com/NeZlox/authorization-service/internal/repository"
)

type SessionService struct {
	store   repository.Store
	cfg     *config.AppConfig
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewSessionService(store repository.Store, cfg *config.AppConfig, m *metrics.Metrics, log zerolog.Logger) *SessionService {
	return &SessionService{
		store:   store,
		cfg:     cfg,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// EnforceLimit evicts the oldest active sessions of userID until at most the
// configured cap remain. sessions is usually bound to the caller's transaction.
func (s *SessionService) EnforceLimit(ctx context.Context, sessions repository.SessionStore, userID string) (int64, error) {
	limit := s.cfg.Security.MaxSessions
	active := repository.SessionFilter{UserID: userID, ActiveAt: s.now()}

	count, err := sessions.CountWhere(ctx, active)
	if err != nil {
		return 0, err
	}
	excess := count - limit
	if excess <= 0 {
		return 0, nil
	}
	evicted, err := sessions.DeleteOldest(ctx, active, excess)
	if err != nil {
		return 0, err
	}

	s.metrics.SessionsEvicted.Add(float64(evicted))
	s.log.Info().
		Str("user_id", userID).
		Int("active", count).
		Int64("evicted", evicted).
		Msg("session cap enforced")
	return evicted, nil
}

// DeleteExpired removes every session whose expiry lies strictly before now.
func (s *SessionService) DeleteExpired(ctx context.Context) (int64, error) {
	deleted, err := s.store.Sessions().DeleteWhere(ctx, repository.SessionFilter{ExpiredBefore: s.now()})
	if err != nil {
		return 0, internalError(err)
	}
	return deleted, nil
}

type SessionQuery struct {
	UserID     string
	ActiveOnly bool
}

func (s *SessionService) List(ctx context.Context, query SessionQuery, page models.Page) (models.Paginated[models.Session], error) {
	page = page.Normalize()
	filter := repository.SessionFilter{UserID: query.UserID}
	if query.ActiveOnly {
		filter.ActiveAt = s.now()
	}

	items, total, err := s.store.Sessions().List(ctx, filter, page)
	if err != nil {
		return models.Paginated[models.Session]{}, internalError(err)
	}
	return models.Paginated[models.Session]{
		Items:  items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (models.Session, error) {
	session, err := s.store.Sessions().GetByID(ctx, id)
	if err != nil {
		return models.Session{}, mapSessionError(err)
	}
	return session, nil
}

func (s *SessionService) Delete(ctx context.Context, id string) error {
	return mapSessionError(s.store.Sessions().Delete(ctx, id))
}

func mapSessionError(err error) error {
	if errors.Is(err, repository.ErrSessionNotFound) {
		return apperr.ErrSessionNotFound
	}
	return internalError(err)
}
