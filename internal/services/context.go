package services

import "context"

type contextKey string

const (
	eventIDKey   contextKey = "event_id"
	trackIDKey   contextKey = "track_id"
	requestIDKey contextKey = "request_id"
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithEventID annotates context with the attendance event identifier.
func WithEventID(ctx context.Context, id string) context.Context {
	return withString(ctx, eventIDKey, id)
}

// EventIDFromContext extracts the attendance event identifier if present.
func EventIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, eventIDKey)
}

// WithTrackID annotates context with the face track identifier.
func WithTrackID(ctx context.Context, id string) context.Context {
	return withString(ctx, trackIDKey, id)
}

// TrackIDFromContext extracts the face track identifier if present.
func TrackIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, trackIDKey)
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, requestIDKey)
}
