// Package preflight provides readiness checks for the directories,
// binaries, and backend endpoint that Facegate depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup and logs failures without
//     refusing to start: the kiosk keeps recording attendance locally
//     even when the backend is unreachable.
//   - The CLI "facegate status" command uses individual check functions
//     (CheckBackendFromConfig, CheckSystemDeps, ProbeCamera) to display
//     service health.
package preflight
