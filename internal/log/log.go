// Package log provides the shared logging infrastructure for sovereign.
//
// This package provides:
//   - A type alias for *slog.Logger to use as DI dependency
//   - Factory functions to create configured loggers
//   - A Nop logger for testing
//
// Design:
//   - Loggers are injected via constructors, never global
//   - Each service tags its records with host, environment, and service name
//   - Components add context via logger.With()
//
// Output goes to the console; when a log file is configured, records are
// written to both (the deployment keeps per-service files on a shared
// volume).
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Logger is a type alias for *slog.Logger.
// Using the standard library type directly keeps full compatibility with the
// slog ecosystem and With() for adding context.
type Logger = *slog.Logger

// Config defines logger configuration options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// JSON enables JSON format output. Default: false (text format)
	JSON bool

	// AddSource adds source file information to log entries. Default: false
	AddSource bool

	// File, when non-empty, duplicates output into the given log file.
	// The parent directory is created if needed.
	File string

	// Service names the emitting process (backend, data-processor, ...).
	Service string

	// Environment tags records with the deployment environment.
	Environment string
}

// New creates a new logger with the given configuration.
// Console output goes to os.Stderr; a file sink is added when cfg.File is
// set. Records carry host, environment, and service fields.
func New(cfg Config) (Logger, error) {
	w := io.Writer(os.Stderr)

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
	}

	return NewWithWriter(w, cfg), nil
}

// NewWithWriter creates a new logger that writes to the specified writer.
// Useful for testing or custom output destinations.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)

	attrs := make([]any, 0, 6)
	if host, err := os.Hostname(); err == nil && host != "" {
		attrs = append(attrs, "host", host)
	}
	if cfg.Environment != "" {
		attrs = append(attrs, "environment", cfg.Environment)
	}
	if cfg.Service != "" {
		attrs = append(attrs, "service", cfg.Service)
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}

	return logger
}

// NewNop creates a logger that discards all output.
//
// This should ONLY be used in tests; production code always uses New or
// NewWithWriter with proper configuration.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
