package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

var loggerCtxKey = contextKey{}

// Get returns the logger carried by ctx, or the global logger.
// A nil ctx is allowed.
func Get(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return zap.L()
	}
	if ctxLogger, ok := ctx.Value(loggerCtxKey).(*zap.Logger); ok && ctxLogger != nil {
		return ctxLogger
	}
	return zap.L()
}

// With returns a new context carrying the provided logger.
func With(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// WithFields derives a logger from the one in ctx and stores it back.
// Handlers use it to tag everything logged for an event with its ids.
func WithFields(ctx context.Context, fields ...zap.Field) (context.Context, *zap.Logger) {
	log := Get(ctx).With(fields...)
	return With(ctx, log), log
}
