// Package app wires configuration into a ready-to-serve httpserver.Server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/eswan18/passwordreset/pkg/config"
	"github.com/eswan18/passwordreset/pkg/email"
	"github.com/eswan18/passwordreset/pkg/httpserver"
	"github.com/eswan18/passwordreset/pkg/resettoken"
	"github.com/eswan18/passwordreset/pkg/store"
)

// App owns the server and everything it holds open.
type App struct {
	Server    *httpserver.Server
	Datastore *store.Store
	closers   []io.Closer
}

// New opens the database, picks a reset token store and email sender, and
// builds the server. It does not run migrations.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	datastore, err := store.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore: %w", err)
	}
	a := &App{Datastore: datastore, closers: []io.Closer{datastore}}

	tokens, err := newResetTokenStore(ctx, cfg, datastore, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := tokens.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.Server = httpserver.New(cfg, datastore.Q, tokens, NewEmailSender(cfg, log), log)
	return a, nil
}

func newResetTokenStore(ctx context.Context, cfg *config.Config, datastore *store.Store, log zerolog.Logger) (resettoken.Store, error) {
	if cfg.RedisURL == "" {
		log.Info().Msg("reset tokens stored in postgres")
		return resettoken.NewPostgresStore(datastore.Q), nil
	}
	tokens, err := resettoken.NewRedisStoreFromURL(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info().Msg("reset tokens stored in redis")
	return tokens, nil
}

// NewEmailSender returns the sender named by EMAIL_PROVIDER.
func NewEmailSender(cfg *config.Config, log zerolog.Logger) email.Sender {
	switch cfg.EmailProvider {
	case config.EmailProviderResend:
		log.Info().Str("from", cfg.EmailFrom).Msg("email provider: resend")
		return email.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	case config.EmailProviderSMTP:
		log.Info().Str("host", cfg.SMTP.Host).Int("port", cfg.SMTP.Port).Msg("email provider: smtp")
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.EmailFrom,
		}, log)
	default:
		log.Warn().Msg("email provider: log (emails are not delivered)")
		return email.NewLogSender(log)
	}
}

// Close releases everything New opened, most recent first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
