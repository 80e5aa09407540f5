// Package main runs the password reset service.
//
// @title           Password Reset Service
// @version         1.0
//
// @host      localhost:8000
// @BasePath  /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eswan18/passwordreset/pkg/app"
	"github.com/eswan18/passwordreset/pkg/config"
	"github.com/eswan18/passwordreset/pkg/logger"
	"github.com/eswan18/passwordreset/pkg/store"
)

func main() {
	log := logger.Init()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := store.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- a.Server.Run() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		if err := a.Server.Close(); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
