package sim

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the console logger used by the commands. Unparseable
// levels fall back to info.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// NopLogger returns a logger that discards everything. Used by tests and as
// the harness default.
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}
