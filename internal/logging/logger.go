// Package logging defines a minimal structured-logging interface used across
// the project, with slog, zap and logrus implementations.
package logging

import (
	"context"
	"fmt"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "stored file", "file_id", id, "size", size)
//
// Key material and plaintext must never be passed as arguments.
type Logger interface {
	// Debug logs diagnostic detail.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// New returns the logger selected by format: "slog" (or empty) for slog with
// a JSON handler on stdout, "zap" or "logrus". Other values are an error.
func New(format string) (Logger, error) {
	switch format {
	case "", "slog":
		return NewDefaultSlogLogger(), nil
	case "zap":
		return NewProductionZapLogger()
	case "logrus":
		return NewDefaultLogrusLogger(), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}
