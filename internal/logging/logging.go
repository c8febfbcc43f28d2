// Package logging builds the zerolog loggers used across fieldsync.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/f3xlab/fieldsync/internal/config"
)

// New returns a logger writing human-readable lines to out and JSON events
// to buf. buf may be nil.
func New(cfg config.LogConfig, out io.Writer, buf *Buffer) zerolog.Logger {
	return NewWithWriter(cfg, zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}, buf)
}

// NewWithWriter is New with a caller supplied console writer
func NewWithWriter(cfg config.LogConfig, console io.Writer, buf *Buffer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var w io.Writer = console
	if buf != nil {
		w = zerolog.MultiLevelWriter(console, buf)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the component name
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
