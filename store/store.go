// Package store defines the aggregate persistence interface. Each
// subsystem (job records, dead letter entries) defines its own store
// interface; the composite Store composes them. Backends: Postgres
// (pgx), Bun, and Memory.
package store

import (
	"context"

	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/job"
)

// Store is the aggregate persistence interface. A single backend
// implements every subsystem store so the dead-letter writer can flip
// a job record and insert an entry in one transaction.
type Store interface {
	job.Store
	dlq.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
