package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger on stderr. Stdout is left for command
// output.
func New(level string) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, level)
}

func NewWithWriter(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	logger := zerolog.New(out).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	return logger, nil
}

// ParseLevel accepts zerolog level names, with "" meaning info.
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}
