package handler

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/eswan18/passwordreset/pkg/app"
	"github.com/eswan18/passwordreset/pkg/config"
	"github.com/eswan18/passwordreset/pkg/logger"
)

var handler http.Handler

func init() {
	log := logger.Init()

	// HTTP_ADDRESS is required by config but unused here since Run is never called.
	if os.Getenv("HTTP_ADDRESS") == "" {
		os.Setenv("HTTP_ADDRESS", ":8080")
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}

	// Serverless instances get a smaller pool than the long-running service.
	a.Datastore.DB.SetMaxOpenConns(5)
	a.Datastore.DB.SetMaxIdleConns(2)
	a.Datastore.DB.SetConnMaxLifetime(5 * time.Minute)

	handler = a.Server.Router()
	log.Info().Msg("server initialized for vercel")
}

// Handler is the entry point for Vercel serverless functions.
func Handler(w http.ResponseWriter, r *http.Request) {
	handler.ServeHTTP(w, r)
}
