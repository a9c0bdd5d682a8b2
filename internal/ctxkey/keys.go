// Package ctxkey carries the request-scoped logger between the HTTP layer and
// the services without an import cycle.
package ctxkey

import (
	"context"
	"log/slog"
)

// LoggerKey is the context key of the request logger.
type LoggerKey struct{}

// WithLogger returns ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey{}, logger)
}

// Logger returns the request logger of ctx, or fallback.
func Logger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(LoggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return fallback
}
