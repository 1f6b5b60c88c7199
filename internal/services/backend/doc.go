// Package backend wraps the attendance backend HTTP API: event delivery and
// the health probe the connectivity monitor runs. The client classifies
// responses but never retries; retry policy belongs to the sync manager.
package backend
