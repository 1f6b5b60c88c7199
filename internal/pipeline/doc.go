// Package pipeline owns the frame loop that turns vision output into
// durable attendance events.
//
// The coordinator pulls frames from the provider, advances the tracker,
// and persists every emittable decision before announcing it on the live
// feed. Failure handling is deliberately boring: malformed frames are
// skipped, provider exits are waited out and retried, and a decision the
// store refuses twice is pushed to the feed and the admin channel rather
// than dropped on the floor.
package pipeline
