package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/requeue"
	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
)

const entryColumns = `
	id, job_id, document_id, original_message, schema_version,
	error_message, error_details, retry_history, retry_count, reason,
	dead_lettered_at, status, last_action_at, last_action_by,
	replay_attempts, last_replay_error, replayed_job_id, replayed_at,
	version`

// WriteEntry persists a new dead letter entry and marks the originating
// job record as dead-lettered in the same transaction. A missing job
// record is logged and skipped rather than failing the write.
func (s *Store) WriteEntry(ctx context.Context, entry *dlq.Entry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("requeue/postgres: begin write entry: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx, `
		INSERT INTO requeue_dlq (`+entryColumns+`
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18,
			$19
		)`,
		entry.ID.String(), entry.JobID.String(), entry.DocumentID.String(),
		entry.OriginalMessage, entry.SchemaVersion,
		entry.ErrorMessage, entry.ErrorDetails, entry.RetryHistory,
		entry.RetryCount, entry.Reason,
		entry.DeadLetteredAt, string(entry.Status),
		entry.LastActionAt, entry.LastActionBy,
		entry.ReplayAttempts, entry.LastReplayError,
		entry.ReplayedJobID, entry.ReplayedAt,
		entry.Version,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return requeue.ErrEntryAlreadyExists
		}
		return fmt.Errorf("requeue/postgres: insert entry: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE requeue_jobs SET
			status = $2, error_message = $3, error_details = $4
		WHERE id = $1`,
		entry.JobID.String(), string(job.StatusDeadLettered),
		entry.ErrorMessage, entry.ErrorDetails,
	)
	if err != nil {
		return fmt.Errorf("requeue/postgres: mark job dead-lettered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Warn("job record missing while dead-lettering",
			"job_id", entry.JobID.String(),
			"entry_id", entry.ID.String(),
		)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("requeue/postgres: commit write entry: %w", err)
	}
	return nil
}

// GetEntry retrieves a dead letter entry by ID.
func (s *Store) GetEntry(ctx context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM requeue_dlq WHERE id = $1`,
		entryID.String(),
	)

	e, err := scanEntry(row)
	if err != nil {
		if isNoRows(err) {
			return nil, requeue.ErrEntryNotFound
		}
		return nil, fmt.Errorf("requeue/postgres: get entry: %w", err)
	}
	return e, nil
}

// UpdateEntry persists a mutated entry guarded by its version. The row
// is only written when the stored version matches the one the entry was
// read with; otherwise requeue.ErrVersionConflict is returned.
func (s *Store) UpdateEntry(ctx context.Context, entry *dlq.Entry) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE requeue_dlq SET
			status = $3, last_action_at = $4, last_action_by = $5,
			replay_attempts = $6, last_replay_error = $7,
			replayed_job_id = $8, replayed_at = $9,
			version = version + 1
		WHERE id = $1 AND version = $2`,
		entry.ID.String(), entry.Version,
		string(entry.Status), entry.LastActionAt, entry.LastActionBy,
		entry.ReplayAttempts, entry.LastReplayError,
		entry.ReplayedJobID, entry.ReplayedAt,
	)
	if err != nil {
		return fmt.Errorf("requeue/postgres: update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a stale version.
		var exists bool
		err = s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM requeue_dlq WHERE id = $1)`,
			entry.ID.String(),
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("requeue/postgres: check entry: %w", err)
		}
		if !exists {
			return requeue.ErrEntryNotFound
		}
		return requeue.ErrVersionConflict
	}

	entry.Version++
	return nil
}

// ListEntries returns entries matching opts plus the total match count
// ignoring Limit and Offset. Results are ordered by dead_lettered_at
// descending, tie-broken by id ascending.
func (s *Store) ListEntries(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, int64, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if !opts.DocumentID.IsNil() {
		where += fmt.Sprintf(" AND document_id = $%d", argIdx)
		args = append(args, opts.DocumentID.String())
		argIdx++
	}
	if !opts.JobID.IsNil() {
		where += fmt.Sprintf(" AND job_id = $%d", argIdx)
		args = append(args, opts.JobID.String())
		argIdx++
	}
	if opts.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(opts.Status))
		argIdx++
	}
	if !opts.From.IsZero() {
		where += fmt.Sprintf(" AND dead_lettered_at >= $%d", argIdx)
		args = append(args, opts.From)
		argIdx++
	}
	if !opts.To.IsZero() {
		where += fmt.Sprintf(" AND dead_lettered_at < $%d", argIdx)
		args = append(args, opts.To)
		argIdx++
	}

	var total int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM requeue_dlq`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("requeue/postgres: count entries: %w", err)
	}

	query := `SELECT ` + entryColumns + ` FROM requeue_dlq` + where +
		` ORDER BY dead_lettered_at DESC, id ASC`

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("requeue/postgres: list entries: %w", err)
	}
	defer rows.Close()

	var entries []*dlq.Entry
	for rows.Next() {
		e, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("requeue/postgres: scan entry row: %w", scanErr)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("requeue/postgres: iterate entry rows: %w", err)
	}
	return entries, total, nil
}

// EntryMetrics returns aggregate counters over all entries.
func (s *Store) EntryMetrics(ctx context.Context) (*dlq.Metrics, error) {
	var m dlq.Metrics
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'Pending'),
			COUNT(*) FILTER (WHERE status = 'Replayed'),
			COUNT(*) FILTER (WHERE status = 'Discarded'),
			MIN(dead_lettered_at) FILTER (WHERE status = 'Pending')
		FROM requeue_dlq`,
	).Scan(&m.TotalCount, &m.PendingCount, &m.ReplayedCount, &m.DiscardedCount, &m.OldestPendingAt)
	if err != nil {
		return nil, fmt.Errorf("requeue/postgres: entry metrics: %w", err)
	}
	return &m, nil
}

// scanEntry scans a single dead letter entry row.
func scanEntry(row pgx.Row) (*dlq.Entry, error) {
	var (
		e        dlq.Entry
		idStr    string
		jobIDStr string
		docIDStr string
		status   string
	)
	err := row.Scan(
		&idStr, &jobIDStr, &docIDStr, &e.OriginalMessage, &e.SchemaVersion,
		&e.ErrorMessage, &e.ErrorDetails, &e.RetryHistory, &e.RetryCount, &e.Reason,
		&e.DeadLetteredAt, &status, &e.LastActionAt, &e.LastActionBy,
		&e.ReplayAttempts, &e.LastReplayError, &e.ReplayedJobID, &e.ReplayedAt,
		&e.Version,
	)
	if err != nil {
		return nil, err
	}

	parsedID, parseErr := id.ParseDLQID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("requeue/postgres: parse entry id %q: %w", idStr, parseErr)
	}
	e.ID = parsedID

	parsedJobID, jobParseErr := id.ParseJobID(jobIDStr)
	if jobParseErr != nil {
		return nil, fmt.Errorf("requeue/postgres: parse job id %q: %w", jobIDStr, jobParseErr)
	}
	e.JobID = parsedJobID

	parsedDocID, docParseErr := id.ParseDocumentID(docIDStr)
	if docParseErr != nil {
		return nil, fmt.Errorf("requeue/postgres: parse document id %q: %w", docIDStr, docParseErr)
	}
	e.DocumentID = parsedDocID
	e.Status = dlq.Status(status)

	return &e, nil
}
