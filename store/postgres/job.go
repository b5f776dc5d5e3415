package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/requeue"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
)

// CreateRecord persists a new job status record.
func (s *Store) CreateRecord(ctx context.Context, r *job.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO requeue_jobs (
			id, document_id, status, error_message, error_details,
			created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID.String(), r.DocumentID.String(), string(r.Status),
		r.ErrorMessage, r.ErrorDetails,
		r.CreatedAt, r.CompletedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return requeue.ErrJobAlreadyExists
		}
		return fmt.Errorf("requeue/postgres: create job record: %w", err)
	}
	return nil
}

// GetRecord retrieves a job record by ID.
func (s *Store) GetRecord(ctx context.Context, jobID id.JobID) (*job.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, document_id, status, error_message, error_details,
			created_at, completed_at
		FROM requeue_jobs
		WHERE id = $1`,
		jobID.String(),
	)

	r, err := scanRecord(row)
	if err != nil {
		if isNoRows(err) {
			return nil, requeue.ErrJobRecordNotFound
		}
		return nil, fmt.Errorf("requeue/postgres: get job record: %w", err)
	}
	return r, nil
}

// UpdateRecord persists changes to an existing job record.
func (s *Store) UpdateRecord(ctx context.Context, r *job.Record) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE requeue_jobs SET
			document_id = $2, status = $3, error_message = $4,
			error_details = $5, completed_at = $6
		WHERE id = $1`,
		r.ID.String(), r.DocumentID.String(), string(r.Status),
		r.ErrorMessage, r.ErrorDetails, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("requeue/postgres: update job record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return requeue.ErrJobRecordNotFound
	}
	return nil
}

// scanRecord scans a single job record row.
func scanRecord(row pgx.Row) (*job.Record, error) {
	var (
		r        job.Record
		idStr    string
		docIDStr string
		status   string
	)
	err := row.Scan(
		&idStr, &docIDStr, &status, &r.ErrorMessage, &r.ErrorDetails,
		&r.CreatedAt, &r.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	parsedID, parseErr := id.ParseJobID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("requeue/postgres: parse job id %q: %w", idStr, parseErr)
	}
	r.ID = parsedID

	parsedDocID, docParseErr := id.ParseDocumentID(docIDStr)
	if docParseErr != nil {
		return nil, fmt.Errorf("requeue/postgres: parse document id %q: %w", docIDStr, docParseErr)
	}
	r.DocumentID = parsedDocID
	r.Status = job.Status(status)

	return &r, nil
}
