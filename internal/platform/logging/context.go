package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// ctxKey carries a request-scoped logger through a context.
type ctxKey struct{}

// fallback is handed out when a context carries no logger. Until SetDefault
// stores one, FromContext falls through to slog.Default.
var fallback atomic.Pointer[slog.Logger]

// WithContext stores logger in ctx for FromContext and Lookup to retrieve.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Lookup reports the logger stored in ctx, if any. Unlike FromContext it
// never substitutes a default, so callers can tell an explicit logger from
// the ambient one.
func Lookup(ctx context.Context) (*slog.Logger, bool) {
	if ctx == nil {
		return nil, false
	}

	logger, ok := ctx.Value(ctxKey{}).(*slog.Logger)

	return logger, ok
}

// FromContext extracts the logger from ctx, falling back to the package
// default when ctx carries none or is nil.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := Lookup(ctx); ok {
		return logger
	}

	if logger := fallback.Load(); logger != nil {
		return logger
	}

	return slog.Default()
}

// withAttr stores back a copy of the context logger carrying one more
// attribute.
func withAttr(ctx context.Context, attr slog.Attr) context.Context {
	return WithContext(ctx, FromContext(ctx).With(attr))
}

// WithRequestID returns a context whose logger carries the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withAttr(ctx, slog.String("request_id", requestID))
}

// WithTraceID returns a context whose logger carries the trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withAttr(ctx, slog.String("trace_id", traceID))
}

// WithCorrelationID returns a context whose logger carries the caller's
// correlation ID.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return withAttr(ctx, slog.String("correlation_id", correlationID))
}

// SetDefault sets the logger used when no logger is in context and makes it
// the process-wide slog default.
func SetDefault(logger *slog.Logger) {
	fallback.Store(logger)
	slog.SetDefault(logger)
}
