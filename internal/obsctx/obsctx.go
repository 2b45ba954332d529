// Package obsctx carries request/job-scoped observability values (the
// structured logger and a correlation id) through a context.Context, the way
// the teacher's internal/observability package does for HTTP requests.
package obsctx

import (
	"context"
	"log/slog"
)

type loggerCtxKey struct{}
type requestIDCtxKey struct{}

// ContextWithLogger returns a context carrying the given logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// LoggerFromContext returns the logger carried by ctx, or slog.Default() if
// none was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if lg, ok := ctx.Value(loggerCtxKey{}).(*slog.Logger); ok && lg != nil {
		return lg
	}
	return slog.Default()
}

// ContextWithRequestID returns a context carrying the given correlation id
// (an HTTP request id, or a job run_id for background execution).
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, id)
}

// RequestIDFromContext returns the correlation id carried by ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDCtxKey{}).(string); ok {
		return id
	}
	return ""
}
