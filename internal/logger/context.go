// internal/logger/context.go
//
// Request-scoped loggers.
//
// Context
// -------
// The request middleware attaches a child logger carrying the request ID
// and path.  Handlers and services call FromContext so every line they
// write can be correlated with one HTTP request.  When nothing was
// attached, the global sugared logger is returned.
package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by WithContext, or zap.S().
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok && l != nil {
		return l
	}
	return zap.S()
}
