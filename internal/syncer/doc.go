// Package syncer drains the durable attendance queue to the backend.
//
// Delivery is strictly chronological with one event in flight: the backend
// receives events in the order people walked past the camera, and a delayed
// head never lets younger events overtake it. Transient failures back off
// exponentially per event; permanent rejections are recorded once and never
// retried automatically. The at-least-once contract leans on the backend
// deduplicating by event id, so a crash between server accept and the local
// synced mark costs a redelivery, never a lost or doubled record.
package syncer
