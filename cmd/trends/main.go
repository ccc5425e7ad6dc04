package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/newstrend-lab/keyword-trends/internal/app"
	"github.com/newstrend-lab/keyword-trends/internal/platform/config"
	"github.com/newstrend-lab/keyword-trends/internal/storage"
)

func main() {
	mode := flag.String("mode", "aggregate", "Service mode (aggregate, serve, export)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := storage.New(ctx, cfg.PostgresDSN, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	switch *mode {
	case "aggregate":
		err = application.RunAggregate(ctx)
	case "serve":
		err = application.RunServe(ctx)
	case "export":
		err = application.RunExport(ctx)
	default:
		logger.Fatal().Str("mode", *mode).Msg("unknown mode")
	}

	if err != nil {
		logger.Fatal().Err(err).Str("mode", *mode).Msg("run failed")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
