// Package observability provides logging and metrics.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// RequestIDKey carries the request id from the HTTP layer into services.
const RequestIDKey LogContextKey = "request_id"

// NewLogger builds the process logger: JSON in production, text otherwise.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	if env == "production" || env == "prod" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// WithRequestID returns a new context with the given request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// ExtractRequestID retrieves the request id from the context.
func ExtractRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// LogAsyncOperationError logs a failure of work that runs after the
// response, e.g. a rating recompute or a welcome mail.
func LogAsyncOperationError(ctx context.Context, logger *slog.Logger, operation string, err error, attrs ...any) {
	attrs = append(attrs,
		slog.String("operation", operation),
		slog.String("error", err.Error()),
		slog.String("request_id", ExtractRequestID(ctx)),
	)
	logger.ErrorContext(ctx, "async operation failed", attrs...)
}
