package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

// correlationKey is an unexported context key type to avoid collisions.
type correlationKey struct{}

// SetCorrelationID stores a correlation ID in the context so that log entries
// emitted while handling the same request can be tied together.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID extracts the correlation ID from the context, or returns an
// empty string if none was set.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// WithCorrelationID returns a log entry carrying the context's correlation ID.
// When no correlation ID is present the plain logger entry is returned.
func WithCorrelationID(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	if id := CorrelationID(ctx); id != "" {
		return logger.WithField("correlation_id", id)
	}
	return logrus.NewEntry(logger)
}
