package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/NeZlox/authorization-service/internal/cache"
	"github.com/NeZlox/authorization-service/internal/config"
	"github.com/NeZlox/authorization-service/internal/database"
	"github.com/NeZlox/authorization-service/internal/handlers"
	"github.com/NeZlox/authorization-service/internal/jobs"
	"github.com/NeZlox/authorization-service/internal/log"
	"github.com/NeZlox/authorization-service/internal/metrics"
	"github.com/NeZlox/authorization-service/internal/repository"
	"github.com/NeZlox/authorization-service/internal/security"
	"github.com/NeZlox/authorization-service/internal/server"
	"github.com/NeZlox/authorization-service/internal/service"
	"github.com/NeZlox/authorization-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	var (
		store  repository.Store
		dbPool *pgxpool.Pool
		dbPing handlers.Pinger
	)
	if cfg.Postgres.DSN != "" {
		dbPool, err = database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		store = repository.NewPostgresStore(dbPool)
		dbPing = dbPool
	} else {
		logger.Warn().Msg("no postgres dsn configured, sessions are kept in memory")
		store = repository.NewMemoryStore()
	}

	var (
		redisClient *redis.Client
		cachePing   handlers.Pinger
	)
	redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		if cfg.IsProduction() {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		logger.Warn().Err(err).Msg("redis unavailable, session cleanup runs in-process")
	} else {
		cachePing = cache.NewHealthCheck(redisClient)
	}

	tokens, err := newTokenCodec(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init token codec")
	}

	m := metrics.New()
	passwords := security.NewArgon2Hasher(security.Argon2ParamsFrom(cfg.Security.PasswordHashing))
	sessions := service.NewSessionService(store, cfg, m, logger)
	svc := handlers.Services{
		Auth:     service.NewAuthService(store, sessions, tokens, passwords, cfg, m, logger),
		Users:    service.NewUserService(store, passwords, logger),
		Sessions: sessions,
		Access:   service.NewAccessControl(store.Users(), tokens, cfg.IsProduction()),
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, svc, m, dbPing, cachePing)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(redisClient, service.NewReaper(sessions, m, logger), cfg.Jobs, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

// newTokenCodec loads the signing keys. Outside production a missing key pair is
// replaced by an ephemeral one, so tokens do not survive a restart.
func newTokenCodec(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (*security.TokenCodec, error) {
	var privPEM, pubPEM []byte

	if cfg.Security.JWTPrivateKey == "" && !cfg.IsProduction() {
		logger.Warn().Msg("no signing keys configured, generating an ephemeral RSA key pair")
		var err error
		privPEM, pubPEM, err = security.GenerateRSAKeyPair(2048)
		if err != nil {
			return nil, err
		}
	} else {
		var fetcher security.ObjectFetcher
		if cfg.Storage.Endpoint != "" {
			objectStore, err := storage.NewObjectStore(cfg.Storage)
			if err != nil {
				return nil, fmt.Errorf("init object store: %w", err)
			}
			fetcher = objectStore
		}

		var err error
		if privPEM, err = security.LoadKeyMaterial(ctx, cfg.Security.JWTPrivateKey, fetcher); err != nil {
			return nil, fmt.Errorf("private key: %w", err)
		}
		if pubPEM, err = security.LoadKeyMaterial(ctx, cfg.Security.JWTPublicKey, fetcher); err != nil {
			return nil, fmt.Errorf("public key: %w", err)
		}
	}

	signer, err := security.ParsePrivateKey(privPEM)
	if err != nil {
		return nil, err
	}
	pub, err := security.ParsePublicKey(pubPEM)
	if err != nil {
		return nil, err
	}

	return security.NewTokenCodec(signer, pub, security.TokenCodecOptions{
		Issuer:             cfg.Security.JWTIssuer,
		RefreshTokenLength: cfg.Security.RefreshTokenLength,
		RefreshHashing:     security.Argon2ParamsFrom(cfg.Security.RefreshHashing),
	}, logger)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduled job still running at shutdown")
	}

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
