package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/NeZlox/authorization-service/internal/config"
	"github.com/NeZlox/authorization-service/internal/database"
	"github.com/NeZlox/authorization-service/internal/log"
)

func main() {
	direction := flag.String("direction", database.MigrateUp, "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := log.New(cfg.Environment)

	if cfg.Postgres.DSN == "" {
		logger.Fatal().Msg("postgres dsn is required")
	}

	if err := database.Migrate(cfg.Postgres.DSN, *direction); err != nil {
		logger.Fatal().Err(err).Str("direction", *direction).Msg("migration failed")
	}
	logger.Info().Str("direction", *direction).Msg("migrations applied")
}
