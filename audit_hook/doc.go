// Package audithook bridges requeue lifecycle events to an audit trail
// backend. It registers as an ext.Extension and turns retry, dead-letter,
// replay, and discard events into structured audit events.
//
// Recording is fire-and-forget: events are queued onto a buffered
// channel and drained by a background goroutine, so a slow or failing
// audit backend never delays or fails the operation that emitted the
// event.
package audithook
