// Package logging builds the daemon's structured logger.
//
// In development (ENV=development, or Options.Console) records go through a
// colourised console handler; otherwise they are JSON with a "ts" time key.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phsym/console-slog"
)

// Options configures New.
type Options struct {
	Level     slog.Level
	AddSource bool
	Console   bool
	Output    io.Writer
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New returns a logger and the LevelVar controlling it.
func New(opts Options) (*slog.Logger, *slog.LevelVar) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	level := &slog.LevelVar{}
	level.Set(opts.Level)

	var handler slog.Handler
	if opts.Console || os.Getenv("ENV") == "development" {
		handler = console.NewHandler(out, &console.HandlerOptions{
			AddSource: opts.AddSource,
			Level:     level,
		})
	} else {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			AddSource: opts.AddSource,
			Level:     level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					a.Key = "ts"
				}
				return a
			},
		})
	}

	return slog.New(handler), level
}

// Toggle flips level between base and debug and returns the new level. A
// base of debug toggles to info.
func Toggle(level *slog.LevelVar, base slog.Level) slog.Level {
	next := slog.LevelDebug
	if base == slog.LevelDebug {
		next = slog.LevelInfo
	}
	if level.Level() == next {
		next = base
	}
	level.Set(next)
	return next
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
