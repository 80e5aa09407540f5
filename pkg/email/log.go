package email

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender logs emails instead of sending them.
// Useful for development and testing.
type LogSender struct {
	log zerolog.Logger
}

// NewLogSender creates a new log-based email sender.
func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "email").Logger()}
}

// Send logs the email details.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.Info().
		Bool("dev_mode", true).
		Str("to", msg.To).
		Str("from", msg.FromName).
		Str("subject", msg.Subject).
		Str("text", msg.Text).
		Msg("email not actually sent")
	return nil
}
