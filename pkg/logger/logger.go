// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init configures the global logger to write to stdout.
func Init() zerolog.Logger {
	return InitWithWriter(os.Stdout)
}

// InitWithWriter configures the global logger from LOG_LEVEL and LOG_FORMAT
// and returns it.
func InitWithWriter(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var base zerolog.Logger
	if strings.TrimSpace(os.Getenv("LOG_FORMAT")) == "json" {
		base = zerolog.New(w)
	} else {
		cw := zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
		if os.Getenv("LOG_COLOR") == "0" {
			cw.NoColor = true
		}
		base = zerolog.New(cw)
	}

	l := base.With().Timestamp().Logger().Level(level)
	zlog.Logger = l
	return l
}

// Component returns a child of the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return zlog.Logger.With().Str("component", name).Logger()
}
