// Package eventstore persists attendance events in SQLite and exposes the
// status transitions that drive offline-first delivery.
//
// The Store owns the database connection, schema initialization, and the
// sync_status lifecycle (pending, syncing, synced, failed). Events are
// appended once with a client-generated event id and never mutated beyond
// delivery bookkeeping, so a retried delivery resends the identical payload
// and the backend can deduplicate on event id.
//
// The database is a durable outbox rather than a long-term archive: synced
// events are purged on a retention schedule. Schema changes bump the version
// in schema.go; the database is recreated rather than migrated.
package eventstore
