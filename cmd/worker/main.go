package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/NeZlox/authorization-service/internal/cache"
	"github.com/NeZlox/authorization-service/internal/config"
	"github.com/NeZlox/authorization-service/internal/database"
	"github.com/NeZlox/authorization-service/internal/log"
	"github.com/NeZlox/authorization-service/internal/metrics"
	"github.com/NeZlox/authorization-service/internal/queue"
	"github.com/NeZlox/authorization-service/internal/repository"
	"github.com/NeZlox/authorization-service/internal/service"
	"github.com/NeZlox/authorization-service/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	m := metrics.New()
	sessions := service.NewSessionService(repository.NewPostgresStore(dbPool), cfg, m, logger)
	processor := tasks.NewProcessor(service.NewReaper(sessions, m, logger), logger)
	consumer := queue.NewConsumer(
		client,
		cfg.Jobs.Stream,
		cfg.Jobs.Group,
		cfg.Jobs.Consumer,
		cfg.Jobs.ClaimInterval,
		logger,
		processor,
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
