package http

import (
	"context"
	"log/slog"

	"github.com/example/reservation-availability/internal/logging"
)

type contextKey string

const (
	unitIDContextKey    contextKey = "unit_id"
	requestIDContextKey contextKey = "request_id"
)

// ContextWithUnitID injects the reservation unit identifier resolved from the request path.
func ContextWithUnitID(ctx context.Context, unitID string) context.Context {
	return context.WithValue(ctx, unitIDContextKey, unitID)
}

// UnitIDFromContext extracts a unit identifier previously associated with the context.
func UnitIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(unitIDContextKey).(string)
	return id, ok
}

// RequestIDFromContext returns the id RequestLogger assigned to the request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
