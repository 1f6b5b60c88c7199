// Package connectivity tracks backend reachability for the kiosk. A single
// monitor goroutine probes the backend health endpoint, slowly while online
// and eagerly while offline, and broadcasts settled transitions to
// subscribers. The offline-to-online transition is the signal the sync
// manager keys on to flush the outbox.
package connectivity
