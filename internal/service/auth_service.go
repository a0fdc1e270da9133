package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/NeZlox/authorization-service/internal/apperr"
	"github.com/NeZlox/authorization-service/internal/config"
	"github.com/NeZlox/authorization-service/internal/ids"
	"github.com/NeZlox/authorization-service/internal/metrics"
	"github.com/NeZlox/authorization-service/internal/models"
	"github.com/NeZlox/authorization-service/internal/repository"
	"github.com/NeZlox/authorization-service/internal/security"
)

// AuthService runs the session lifecycle: login, refresh, revoke and revoke-all.
// Every write of a single operation happens inside one store transaction.
type AuthService struct {
	store     repository.Store
	sessions  *SessionService
	tokens    TokenCodec
	passwords PasswordHasher
	cfg       *config.AppConfig
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(
	store repository.Store,
	sessions *SessionService,
	tokens TokenCodec,
	passwords PasswordHasher,
	cfg *config.AppConfig,
	m *metrics.Metrics,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		sessions:  sessions,
		tokens:    tokens,
		passwords: passwords,
		cfg:       cfg,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

type Credentials struct {
	Email    string
	Password string
}

func (s *AuthService) Login(ctx context.Context, creds Credentials, client models.ClientContext) (models.PublicUser, models.TokenPair, error) {
	user, pair, err := s.login(ctx, creds, client)
	s.metrics.Logins.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return models.PublicUser{}, models.TokenPair{}, err
	}
	return user.Public(), pair, nil
}

func (s *AuthService) login(ctx context.Context, creds Credentials, client models.ClientContext) (models.User, models.TokenPair, error) {
	user, err := s.store.Users().FindByEmail(ctx, normalizeEmail(creds.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, models.TokenPair{}, apperr.ErrUserNotFound
		}
		return models.User{}, models.TokenPair{}, internalError(err)
	}

	ok, err := s.passwords.Verify(creds.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash could not be verified")
	}
	if !ok {
		return models.User{}, models.TokenPair{}, apperr.ErrInvalidCredentials
	}

	now := s.now()
	pair, refreshHash, err := s.issue(user, now)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if client.RefreshToken != "" {
			rotated, err := s.rotatePresented(ctx, tx, user.ID, client, refreshHash, pair, now)
			if err != nil || rotated {
				return err
			}
		}

		session := models.Session{
			ID:               ids.New(),
			UserID:           user.ID,
			RefreshTokenHash: refreshHash,
			Fingerprint:      client.Fingerprint,
			UserAgent:        client.UserAgent,
			IPAddress:        client.IPAddress,
			ExpiresAt:        pair.RefreshExpiresAt,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if _, err := tx.Sessions().Create(ctx, session); err != nil {
			return err
		}
		_, err := s.sessions.EnforceLimit(ctx, tx.Sessions(), user.ID)
		return err
	})
	if err != nil {
		return models.User{}, models.TokenPair{}, internalError(err)
	}

	s.log.Info().Str("user_id", user.ID).Str("ip", client.IPAddress).Msg("user logged in")
	return user, pair, nil
}

// rotatePresented re-keys the session matching the presented refresh token.
// It reports false when nothing matched or the match was rotated by someone else,
// in which case login falls back to creating a session.
func (s *AuthService) rotatePresented(
	ctx context.Context,
	tx repository.Store,
	userID string,
	client models.ClientContext,
	refreshHash []byte,
	pair models.TokenPair,
	now time.Time,
) (bool, error) {
	existing, err := tx.Sessions().ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	match, ok := s.findSession(existing, client.RefreshToken)
	if !ok {
		return false, nil
	}

	_, err = tx.Sessions().Update(ctx, match.ID, match.Version, rotation(refreshHash, client, pair, now))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrSessionConflict), errors.Is(err, repository.ErrSessionNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Refresh rotates the session matching the presented refresh token and issues a new pair.
func (s *AuthService) Refresh(ctx context.Context, userID string, client models.ClientContext) (models.TokenPair, error) {
	pair, err := s.refresh(ctx, userID, client)
	s.metrics.Refreshes.WithLabelValues(resultLabel(err)).Inc()
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, userID string, client models.ClientContext) (models.TokenPair, error) {
	if client.RefreshToken == "" {
		return models.TokenPair{}, apperr.ErrInvalidCredentials
	}

	now := s.now()
	var (
		pair    models.TokenPair
		expired bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return apperr.ErrInvalidCredentials
			}
			return err
		}

		existing, err := tx.Sessions().ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		match, ok := s.findSession(existing, client.RefreshToken)
		if !ok {
			return apperr.ErrInvalidCredentials
		}

		if match.Expired(now) {
			// The delete must commit, so the failure is reported after the transaction.
			if err := tx.Sessions().Delete(ctx, match.ID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
				return err
			}
			expired = true
			return nil
		}

		var refreshHash []byte
		pair, refreshHash, err = s.issue(user, now)
		if err != nil {
			return err
		}
		_, err = tx.Sessions().Update(ctx, match.ID, match.Version, rotation(refreshHash, client, pair, now))
		if errors.Is(err, repository.ErrSessionConflict) || errors.Is(err, repository.ErrSessionNotFound) {
			s.log.Warn().Str("user_id", userID).Str("session_id", match.ID).Msg("concurrent refresh rejected")
			return apperr.ErrInvalidCredentials
		}
		return err
	})
	if err != nil {
		return models.TokenPair{}, internalError(err)
	}
	if expired {
		s.log.Info().Str("user_id", userID).Msg("expired session removed on refresh")
		return models.TokenPair{}, apperr.ErrTokenExpired
	}
	return pair, nil
}

// RevokeSession deletes the session matching the presented refresh token.
func (s *AuthService) RevokeSession(ctx context.Context, userID string, client models.ClientContext) error {
	if client.RefreshToken == "" {
		return apperr.ErrInvalidCredentials
	}

	existing, err := s.store.Sessions().ListByUser(ctx, userID)
	if err != nil {
		return internalError(err)
	}
	match, ok := s.findSession(existing, client.RefreshToken)
	if !ok {
		return apperr.ErrInvalidCredentials
	}

	if err := s.store.Sessions().Delete(ctx, match.ID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return apperr.ErrInvalidCredentials
		}
		return internalError(err)
	}
	s.log.Info().Str("user_id", userID).Str("session_id", match.ID).Msg("session revoked")
	return nil
}

// RevokeAllSessions deletes every session of userID. Deleting nothing is not an error.
func (s *AuthService) RevokeAllSessions(ctx context.Context, userID string) error {
	deleted, err := s.store.Sessions().DeleteWhere(ctx, repository.SessionFilter{UserID: userID})
	if err != nil {
		return internalError(err)
	}
	s.log.Info().Str("user_id", userID).Int64("deleted", deleted).Msg("all sessions revoked")
	return nil
}

// findSession returns the first session whose stored hash verifies against plain.
func (s *AuthService) findSession(sessions []models.Session, plain string) (models.Session, bool) {
	for _, session := range sessions {
		if s.tokens.VerifyRefreshSecret(plain, session.RefreshTokenHash) {
			return session, true
		}
	}
	return models.Session{}, false
}

// issue signs an access token for user and mints a refresh secret.
func (s *AuthService) issue(user models.User, now time.Time) (models.TokenPair, []byte, error) {
	accessExpiresAt := now.Add(s.cfg.Security.JWTAccessTTL)
	access, err := s.tokens.GenerateAccessToken(security.AccessClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ids.New(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiresAt),
		},
	})
	if err != nil {
		return models.TokenPair{}, nil, err
	}

	refresh, refreshHash, err := s.tokens.GenerateRefreshSecret()
	if err != nil {
		return models.TokenPair{}, nil, err
	}

	return models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: now.Add(s.cfg.Security.JWTRefreshTTL),
	}, refreshHash, nil
}

func rotation(refreshHash []byte, client models.ClientContext, pair models.TokenPair, now time.Time) models.SessionUpdate {
	return models.SessionUpdate{
		RefreshTokenHash: refreshHash,
		Fingerprint:      client.Fingerprint,
		UserAgent:        client.UserAgent,
		IPAddress:        client.IPAddress,
		ExpiresAt:        pair.RefreshExpiresAt,
		UpdatedAt:        now,
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, apperr.ErrUserNotFound):
		return metrics.ResultUserNotFound
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return metrics.ResultInvalidCredentials
	case errors.Is(err, apperr.ErrTokenExpired):
		return metrics.ResultExpired
	default:
		return metrics.ResultError
	}
}
