package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/NeZlox/authorization-service/internal/config"
	"github.com/NeZlox/authorization-service/internal/metrics"
	"github.com/NeZlox/authorization-service/internal/models"
	"github.com/NeZlox/authorization-service/internal/repository"
	"github.com/NeZlox/authorization-service/internal/security"
)

var fastArgon2 = security.Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32, SaltLen: 16}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	cfg      *config.AppConfig
	clock    *clock
	store    *repository.MemoryStore
	codec    *security.TokenCodec
	metrics  *metrics.Metrics
	auth     *AuthService
	sessions *SessionService
	users    *UserService
	access   *AccessControl
	reaper   *Reaper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := repository.NewMemoryStore()
	return newFixtureWithStore(t, mem, mem)
}

// newFixtureWithStore wires services to store, which may wrap mem.
func newFixtureWithStore(t *testing.T, mem *repository.MemoryStore, store repository.Store) *fixture {
	t.Helper()

	cfg := &config.AppConfig{
		Environment: config.EnvironmentDevelopment,
		Security: config.SecurityConfig{
			JWTIssuer:          "authorization-service",
			JWTAccessTTL:       15 * time.Minute,
			JWTRefreshTTL:      30 * 24 * time.Hour,
			RefreshTokenLength: 64,
			MaxSessions:        5,
		},
	}
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	log := zerolog.Nop()

	privPEM, pubPEM, err := security.GenerateECDSAKeyPair()
	if err != nil {
		t.Fatalf("GenerateECDSAKeyPair: %v", err)
	}
	signer, err := security.ParsePrivateKey(privPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := security.ParsePublicKey(pubPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	codec, err := security.NewTokenCodec(signer, pub, security.TokenCodecOptions{
		Issuer:             cfg.Security.JWTIssuer,
		RefreshTokenLength: cfg.Security.RefreshTokenLength,
		RefreshHashing:     fastArgon2,
		Now:                clk.Now,
	}, log)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	m := metrics.New()
	passwords := security.NewArgon2Hasher(fastArgon2)

	sessions := NewSessionService(store, cfg, m, log)
	sessions.now = clk.Now
	auth := NewAuthService(store, sessions, codec, passwords, cfg, m, log)
	auth.now = clk.Now
	users := NewUserService(store, passwords, log)
	users.now = clk.Now

	return &fixture{
		cfg:      cfg,
		clock:    clk,
		store:    mem,
		codec:    codec,
		metrics:  m,
		auth:     auth,
		sessions: sessions,
		users:    users,
		access:   NewAccessControl(store.Users(), codec, false),
		reaper:   NewReaper(sessions, m, log),
	}
}

func (f *fixture) register(t *testing.T, email, password string, role models.UserRole) models.PublicUser {
	t.Helper()
	user, err := f.users.Create(context.Background(), CreateUserInput{Email: email, Password: password, Role: role})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func (f *fixture) login(t *testing.T, email, password string, client models.ClientContext) models.TokenPair {
	t.Helper()
	_, pair, err := f.auth.Login(context.Background(), Credentials{Email: email, Password: password}, client)
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return pair
}

func (f *fixture) userSessions(t *testing.T, userID string) []models.Session {
	t.Helper()
	sessions, err := f.store.Sessions().ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	return sessions
}

func client(refresh string) models.ClientContext {
	return models.ClientContext{
		IPAddress:    "203.0.113.7",
		UserAgent:    "test-agent/1.0",
		Fingerprint:  "fp-1",
		RefreshToken: refresh,
	}
}
