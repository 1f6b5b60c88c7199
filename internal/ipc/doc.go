// Package ipc is the control channel between the facegate CLI and the
// daemon: a JSON-RPC server on a Unix socket plus the matching client.
//
// The wire types here are deliberately flat. Event store rows, tracker
// snapshots, and connectivity state are converted into plain structs before
// they cross the socket so the CLI never links against daemon internals.
// The client dials with a short timeout, which lets commands fall back to
// direct database access when no daemon is serving.
package ipc
