// Package logging builds the zerolog loggers used across envguard.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at level. format is "json" or
// "console"; anything else is treated as json. A nil w writes to stderr.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	if level == "" {
		level = "info"
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}

	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// MustNew is like New but falls back to info level on a bad level.
func MustNew(level, format string, w io.Writer) zerolog.Logger {
	logger, err := New(level, format, w)
	if err != nil {
		logger, _ = New("info", format, w)
		logger.Warn().Err(err).Msg("invalid log level, using info")
	}
	return logger
}
