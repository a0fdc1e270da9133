package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/NeZlox/authorization-service/internal/metrics"
)

// Reaper sweeps expired sessions. It only deletes rows past their expiry, so it
// may run alongside live logins.
type Reaper struct {
	sessions *SessionService
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewReaper(sessions *SessionService, m *metrics.Metrics, log zerolog.Logger) *Reaper {
	return &Reaper{
		sessions: sessions,
		metrics:  m,
		log:      log.With().Str("component", "session_reaper").Logger(),
	}
}

func (r *Reaper) Run(ctx context.Context) (int64, error) {
	deleted, err := r.sessions.DeleteExpired(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("expired session sweep failed")
		return 0, err
	}
	r.metrics.SessionsReaped.Add(float64(deleted))
	r.log.Info().Int64("deleted", deleted).Msg("expired sessions swept")
	return deleted, nil
}
