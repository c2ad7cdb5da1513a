// Package logging configures the global zerolog logger used by every package.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Level  string
	Format string // json or console
	Output io.Writer
}

// Init sets the global level and output format. Safe to call more than once.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("unknown log level, using info")
	}
}
