package liftcheck

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	technicianContextKey contextKey = iota + 1
	requestIDContextKey
)

// NewContextWithTechnicianID attaches the acting technician to the context.
func NewContextWithTechnicianID(ctx context.Context, technicianID string) context.Context {
	return context.WithValue(ctx, technicianContextKey, technicianID)
}

// TechnicianIDFromContext returns the acting technician, or empty string.
func TechnicianIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(technicianContextKey).(string)
	return id
}

// NewContextWithRequestID attaches a request ID to the context.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext returns the request ID from the context, or empty string.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}
