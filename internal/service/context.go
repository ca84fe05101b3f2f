package service

import "context"

type contextKey string

const traceKey contextKey = "trace_id"

// WithTraceID injects the request trace id into the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey, traceID)
}

// TraceID retrieves the trace id from the context, or "" when absent
func TraceID(ctx context.Context) string {
	val, _ := ctx.Value(traceKey).(string)
	return val
}
