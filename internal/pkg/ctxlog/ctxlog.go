// Package ctxlog provides context-aware logging utilities.
package ctxlog

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type ctxKey struct{}

// FromContext extracts the logger from context.
// Returns slog.Default() if no logger is found.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithRequestID attaches a logger carrying a fresh request_id to the
// context and returns the id so it can be reported elsewhere.
func WithRequestID(ctx context.Context) (context.Context, string) {
	requestID := uuid.NewString()
	logger := FromContext(ctx).With("request_id", requestID)
	return WithLogger(ctx, logger), requestID
}
