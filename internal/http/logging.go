package http

import (
	"log/slog"
	"net/http"
)

// endpointLogger returns the logger for one unit endpoint. It starts from the
// request logger installed by RequestLogger, which already carries the
// request id; without one, fallback is used and the request id is added here.
func endpointLogger(r *http.Request, fallback *slog.Logger, endpoint string) *slog.Logger {
	ctx := r.Context()
	logger := LoggerFromContext(ctx)
	attrs := []any{"endpoint", endpoint}
	if logger == nil {
		logger = fallback
		if id := RequestIDFromContext(ctx); id != "" {
			attrs = append(attrs, "request_id", id)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if unitID, ok := UnitIDFromContext(ctx); ok && unitID != "" {
		attrs = append(attrs, "unit_id", unitID)
	}
	return logger.With(attrs...)
}
