// Package dlq implements the dead letter queue: durable parking for
// document-processing jobs that exhausted their retry budget or failed
// with a non-retryable error.
//
// Entries are permanent audit records. They are created once by the
// Writer, inspected through the Reader, and mutated only by operator
// Actions (replay, discard). An entry is never deleted.
//
// Concurrent operator actions on the same entry are serialized through
// an optimistic version token: every mutation supplies the version it
// read, and the store rejects the write when another mutation got there
// first.
package dlq
