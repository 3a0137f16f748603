// Package contextkeys holds the context keys shared across packages.
//
//	ctx = contextkeys.WithRequestID(ctx, id)
//	id := contextkeys.RequestID(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RequestIDKey contains the request ID string (UUID).
	// Set by httputil.RequestIDMiddleware, read by the request logger.
	RequestIDKey Key = "request_id"
)

// WithRequestID returns a copy of ctx carrying id
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID returns the request ID stored in ctx, or ""
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
