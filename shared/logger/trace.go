package logger

import (
	"context"

	"github.com/google/uuid"
)

type traceIDKey string

// ContextKeyTraceID is the context key holding the request trace id.
const ContextKeyTraceID traceIDKey = "trace_id"

// GenerateTraceID returns a new random trace id.
func GenerateTraceID() string {
	return uuid.New().String()
}

// WithTraceID stores traceID in ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ContextKeyTraceID, traceID)
}

// GetTraceID returns the trace id stored in ctx, or "".
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(ContextKeyTraceID).(string); ok {
		return traceID
	}
	return ""
}
