// Package requeue provides the retry and dead-letter engine for
// asynchronous document-processing jobs: exponential-backoff retry
// policies, a retry handler that routes failed jobs back to the queue or
// into a durable dead-letter store, and operator-facing replay and
// discard operations with optimistic-concurrency protection.
//
// Requeue is designed as a library, not a service. Import it, configure
// a store and a publisher, and hand failed jobs to a retry.Handler.
//
// # Quick Start
//
//	store := memory.New()
//	pub := queue.NewDisabledPublisher(logger)
//	writer := dlq.NewWriter(store, dlq.WithWriterLogger(logger))
//	h := retry.NewHandler(retry.NewPolicy(retry.DefaultConfig()), pub, writer)
//
//	decision := h.EvaluateRetry(msg, job.ClassTransient, "timeout")
//
// # Architecture
//
// Requeue follows a composable store pattern: the dlq and job packages
// each define their own store interface, and a single backend (memory,
// postgres, bun) implements all of them. Correctness under concurrent
// operator actions is enforced through an optimistic version token on
// every dead-letter entry.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package requeue
