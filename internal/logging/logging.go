// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	base zerolog.Logger
)

// Configure initialises the global logger exactly once. level is a zerolog
// level name ("debug", "info", ...); unknown values fall back to info.
// out defaults to a console writer on stderr.
func Configure(level string, out io.Writer) {
	once.Do(func() {
		lvl := zerolog.InfoLevel
		if parsed, err := zerolog.ParseLevel(level); err == nil && level != "" {
			lvl = parsed
		}

		if out == nil {
			out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		}

		base = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	})
}

// Component returns a child logger annotated with a component name.
func Component(name string) zerolog.Logger {
	Configure("", nil)
	return base.With().Str("component", name).Logger()
}
