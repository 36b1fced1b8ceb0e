package common

import (
	"context"
)

type contextKey string

// ContextKeyTraceID carries the id that ties one document's log lines
// together across the queue and the pipeline stages.
const ContextKeyTraceID contextKey = "trace_id"

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ContextKeyTraceID, traceID)
}

// TraceIDFromContext returns "" when ctx carries no trace id.
func TraceIDFromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ContextKeyTraceID).(string); ok {
		return traceID
	}
	return ""
}
