package logging

import (
	"context"
	"log/slog"

	"facegate/internal/services"
)

// Standardized structured logging keys. Every component logs these names so
// a grep over mixed logs lines up.
const (
	FieldComponent     = "component"
	FieldEventID       = "event_id"
	FieldTrackID       = "track_id"
	FieldPersonID      = "person_id"
	FieldDeviceID      = "device_id"
	FieldKind          = "kind"
	FieldWindow        = "window"
	FieldCorrelationID = "correlation_id"
)

// contextLookups pairs each log field with the context accessor that may
// carry it. All context-borne identifiers here are strings.
var contextLookups = []struct {
	key  string
	find func(context.Context) (string, bool)
}{
	{FieldEventID, services.EventIDFromContext},
	{FieldTrackID, services.TrackIDFromContext},
	{FieldCorrelationID, services.RequestIDFromContext},
}

// ContextFields collects the identifiers carried by ctx as slog attributes,
// in a stable order.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, len(contextLookups))
	for _, l := range contextLookups {
		if value, ok := l.find(ctx); ok {
			fields = append(fields, slog.String(l.key, value))
		}
	}
	return fields
}

// WithContext attaches any identifiers carried by ctx to the logger. A nil
// logger gets the nop sink so call sites can chain without guards.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(expand(fields)...)
	}
	return logger
}
