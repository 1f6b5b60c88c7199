// Package feed pushes pipeline and sync events to local UI and voice
// clients over websockets. The hub is transport only: producers publish
// fire-and-forget, delivery is non-blocking, and a client that stops reading
// is evicted rather than allowed to stall the pipeline.
package feed
