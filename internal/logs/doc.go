// Package logs reads the facegated log files for CLI display.
//
// The daemon writes one timestamped file per run and repoints a stable
// facegated.log link at it. The CLI tails through this package so last-N and
// follow semantics live in one place and never hold more than the requested
// window in memory. Callers supply context cancellation so follow polling
// stops when the CLI exits.
package logs
