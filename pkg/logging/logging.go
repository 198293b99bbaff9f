// Package logging configures the process-wide slog logger: colored tint output
// for terminals, JSON lines for log collectors.
//
// Environment variables:
//
//	LOG_LEVEL:  debug, info, warn, error (default: info)
//	LOG_FORMAT: text, json (default: text)
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Options controls the handler New builds.
type Options struct {
	Level   slog.Level
	JSON    bool
	Service string
	Out     io.Writer
}

// FromEnv reads LOG_LEVEL and LOG_FORMAT.
func FromEnv(service string) Options {
	return Options{
		Level:   ParseLevel(os.Getenv("LOG_LEVEL")),
		JSON:    strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
		Service: service,
		Out:     os.Stderr,
	}
}

// New returns a logger for opts. Every record carries the service name when set.
func New(opts Options) *slog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: opts.Level})
	} else {
		h = tint.NewHandler(out, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		})
	}

	logger := slog.New(h)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	return logger
}

// Setup installs the logger described by the environment as the slog default.
func Setup(service string) *slog.Logger {
	logger := New(FromEnv(service))
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog level, defaulting to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
