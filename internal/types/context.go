package types

import (
	"context"
)

// Context Keys
type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID stores the request ID in the context. The ingest API's
// middleware assigns one per request; pipeline logs pick it up as trace_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
