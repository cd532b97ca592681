package domain

import "context"

type requestIDKey struct{}

// WithRequestID returns a context carrying the request ID assigned at the edge
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID on ctx, or "" when none was set
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
