package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	EmailProviderLog    = "log"
	EmailProviderSMTP   = "smtp"
	EmailProviderResend = "resend"

	defaultResetTokenTTL = 30 * time.Minute
	defaultSMTPPort      = 465
)

type Config struct {
	HTTPAddress   string
	DatabaseURL   string
	TemplatesDir  string
	StaticDir     string
	MigrationsDir string

	SiteName string
	// PublicURL is the absolute base for links in emails. When empty the
	// base is taken from the incoming request.
	PublicURL     string
	ResetTokenTTL time.Duration

	// CORSAllowedOrigins enables CORS on /api/auth for these origins.
	CORSAllowedOrigins []string

	// RedisURL selects the Redis reset-token store when set.
	RedisURL string

	EmailProvider string
	EmailFrom     string
	ResendAPIKey  string
	SMTP          SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// NewFromEnv loads .env.<ENV> (ENV defaults to "local") and builds a Config
// from the environment.
func NewFromEnv() (*Config, error) {
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}
	if err := godotenv.Load(".env." + env); err == nil {
		log.Info().Str("file", ".env."+env).Msg("loaded environment variables")
	}

	config := &Config{
		HTTPAddress:        os.Getenv("HTTP_ADDRESS"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		TemplatesDir:       os.Getenv("TEMPLATES_DIR"),
		StaticDir:          getenvDefault("STATIC_DIR", "static"),
		MigrationsDir:      getenvDefault("MIGRATIONS_DIR", "migrations"),
		SiteName:           os.Getenv("SITE_NAME"),
		PublicURL:          strings.TrimRight(os.Getenv("PUBLIC_URL"), "/"),
		RedisURL:           os.Getenv("REDIS_URL"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		EmailProvider:      strings.ToLower(getenvDefault("EMAIL_PROVIDER", EmailProviderLog)),
		EmailFrom:          os.Getenv("EMAIL_FROM"),
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
		},
	}

	ttl, err := parseDuration(os.Getenv("RESET_TOKEN_TTL"), defaultResetTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("RESET_TOKEN_TTL: %w", err)
	}
	config.ResetTokenTTL = ttl

	port, err := parsePort(os.Getenv("SMTP_PORT"), defaultSMTPPort)
	if err != nil {
		return nil, fmt.Errorf("SMTP_PORT: %w", err)
	}
	config.SMTP.Port = port

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports the first missing or malformed setting.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"HTTP_ADDRESS", c.HTTPAddress},
		{"DATABASE_URL", c.DatabaseURL},
		{"TEMPLATES_DIR", c.TemplatesDir},
		{"SITE_NAME", c.SiteName},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is not set", r.name)
		}
	}

	if c.PublicURL != "" {
		if err := validatePublicURL(c.PublicURL); err != nil {
			return fmt.Errorf("PUBLIC_URL: %w", err)
		}
	}

	switch c.EmailProvider {
	case EmailProviderLog:
	case EmailProviderSMTP:
		if c.SMTP.Host == "" {
			return fmt.Errorf("SMTP_HOST is not set")
		}
		if c.SMTP.Username == "" {
			return fmt.Errorf("SMTP_USERNAME is not set")
		}
		if c.EmailFrom == "" {
			return fmt.Errorf("EMAIL_FROM is not set")
		}
	case EmailProviderResend:
		if c.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is not set")
		}
		if c.EmailFrom == "" {
			return fmt.Errorf("EMAIL_FROM is not set")
		}
	default:
		return fmt.Errorf("EMAIL_PROVIDER %q is not one of log, smtp, resend", c.EmailProvider)
	}
	return nil
}

// validatePublicURL checks that the base URL is http(s) and has a host.
func validatePublicURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

func parsePort(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	p, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("out of range: %d", p)
	}
	return p, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
