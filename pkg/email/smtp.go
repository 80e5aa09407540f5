package email

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

const smtpTimeout = 30 * time.Second

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers mail over implicit TLS (SMTPS), authenticating with
// the configured username and password.
type SMTPSender struct {
	cfg SMTPConfig
	log zerolog.Logger
}

func NewSMTPSender(cfg SMTPConfig, log zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		cfg: cfg,
		log: log.With().Str("component", "smtp_sender").Logger(),
	}
}

func (s *SMTPSender) buildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if msg.FromName != "" {
		if err := m.FromFormat(msg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("invalid from address: %w", err)
		}
	} else if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	m.Subject(msg.Subject)

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}
	return m, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.buildMessage(msg)
	if err != nil {
		return fmt.Errorf("smtp: %w", err)
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSSL(),
		mail.WithTimeout(smtpTimeout),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp: client init failed: %w", err)
	}

	s.log.Debug().Str("host", s.cfg.Host).Int("port", s.cfg.Port).Str("to", msg.To).Msg("attempting smtp send")
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		s.log.Error().Err(err).Str("to", msg.To).Msg("smtp send failed")
		return fmt.Errorf("smtp: send failed: %w", err)
	}
	return nil
}
