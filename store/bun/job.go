package bunstore

import (
	"context"
	"fmt"

	"github.com/xraph/requeue"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
)

// CreateRecord persists a new job status record.
func (s *Store) CreateRecord(ctx context.Context, r *job.Record) error {
	m := toRecordModel(r)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return requeue.ErrJobAlreadyExists
		}
		return fmt.Errorf("requeue/bun: create job record: %w", err)
	}
	return nil
}

// GetRecord retrieves a job record by ID.
func (s *Store) GetRecord(ctx context.Context, jobID id.JobID) (*job.Record, error) {
	m := new(jobRecordModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", jobID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, requeue.ErrJobRecordNotFound
		}
		return nil, fmt.Errorf("requeue/bun: get job record: %w", err)
	}
	return fromRecordModel(m)
}

// UpdateRecord persists changes to an existing job record.
func (s *Store) UpdateRecord(ctx context.Context, r *job.Record) error {
	m := toRecordModel(r)
	res, err := s.db.NewUpdate().Model(m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("requeue/bun: update job record: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return requeue.ErrJobRecordNotFound
	}
	return nil
}
