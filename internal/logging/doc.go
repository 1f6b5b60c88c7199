// Package logging assembles the structured slog loggers used across the
// facegate daemon and CLI.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline and sync code can tag log
// lines with event, track, and person identifiers. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
