package http

import (
	"context"
	"log/slog"

	"github.com/example/visitor-kiosk/internal/logging"
)

// ContextWithLogger returns a derived context carrying the request-scoped
// logger. The same key is read by the application layer, so service log
// records inherit the request id.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request-scoped logger from context if available.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
