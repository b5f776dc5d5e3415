package job

import (
	"context"

	"github.com/xraph/requeue/id"
)

// Store defines the persistence contract for processing job records.
type Store interface {
	// CreateRecord persists a new job status record.
	CreateRecord(ctx context.Context, r *Record) error

	// GetRecord retrieves a job record by ID.
	GetRecord(ctx context.Context, jobID id.JobID) (*Record, error)

	// UpdateRecord persists changes to an existing job record.
	UpdateRecord(ctx context.Context, r *Record) error
}
