// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal event and status models into
// transport-friendly DTOs that the kiosk UI, voice agent, and CLI can render
// without coupling to internal types.
//
// # Key Types
//
// Event: transport representation of one attendance event with delivery
// bookkeeping (status, attempts, backoff, last error).
//
// DaemonStatus: daemon running state, connectivity snapshot, queue counts,
// today's totals, and dependency health.
//
// # Converters
//
// FromEvent: eventstore.Event -> Event with UTC timestamp formatting.
//
// MergeEventStats: eventstore stats map -> string-keyed counts with every
// known status present so consumers can index without existence checks.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (eventstore.SyncStatus, kinds) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds.
package api
