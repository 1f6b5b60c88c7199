// Package tracker debounces noisy per-frame face identifications into at
// most one attendance decision per track.
//
// The Tracker holds one automaton per provider-assigned track id: scanning
// until a confident identification appears, verifying until a quorum of the
// recent identifications agrees on one person, then recognized or unknown,
// each terminal for the track. Tracks the provider stops reporting expire
// and release their memory; a returning face arrives under a new track id.
//
// The package is pure state: callers pass the frame capture time into
// ProcessFrame, and no I/O happens here. Per-person duplicate suppression
// within an attendance window lives in the CooldownLedger, mutated only by
// the tracker when a decision is admitted.
package tracker
