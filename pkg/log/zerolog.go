package log

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Format selects how structured log lines are written
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// 🏭 NewStructured builds the zerolog logger every component receives
func NewStructured(w io.Writer, level zerolog.Level, format Format) (zerolog.Logger, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatConsole, "":
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
		return zerolog.New(cw).With().Timestamp().Logger().Level(level), nil
	case FormatJSON:
		return zerolog.New(w).With().Timestamp().Logger().Level(level), nil
	default:
		return zerolog.Nop(), errors.Errorf("unknown log format %q", format)
	}
}

// ParseLevel turns a level name into a zerolog level, defaulting to info
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.NoLevel, errors.Errorf("parsing log level: %w", err)
	}
	return level, nil
}
