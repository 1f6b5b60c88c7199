// Package services defines shared utilities consumed by the pipeline,
// sync manager, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp event, track, and correlation identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (retryable vs permanent vs configuration) uniform
//     across components.
//
// Use these helpers when wiring new components so operational behaviour
// (error handling, observability, retries) stays consistent.
package services
