// Package logging builds the zerolog logger handed to every component.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level and output format.
type Config struct {
	// Level is one of trace, debug, info, warn, error. Unknown values mean info.
	Level string
	// Format is "json" or "console".
	Format string
	// Output defaults to stderr.
	Output io.Writer
}

// New returns a logger for cfg. Components never reach for a global logger;
// the CLI builds one here and passes it down.
func New(cfg Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
