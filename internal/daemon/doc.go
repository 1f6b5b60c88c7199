// Package daemon coordinates the long-running facegate process and system
// integration points.
//
// It wires the vision provider, tracker pipeline, event store, connectivity
// monitor, syncer, and feed hub into a single lifecycle with flock-based
// locking to prevent multiple instances. The daemon exposes queue maintenance
// helpers for the IPC layer, serves the local HTTP API, watches udev for
// camera hotplug, and owns lifecycle notifications.
//
// Keep orchestration logic here: recognition and delivery behavior lives in
// the pipeline and syncer packages while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
