package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/xraph/requeue"
	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
)

// WriteEntry persists a new dead letter entry and marks the originating
// job record as dead-lettered in the same transaction. A missing job
// record is logged and skipped rather than failing the write.
func (s *Store) WriteEntry(ctx context.Context, entry *dlq.Entry) error {
	m := toEntryModel(entry)

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, insErr := tx.NewInsert().Model(m).Exec(ctx)
		if insErr != nil {
			if isDuplicateKey(insErr) {
				return requeue.ErrEntryAlreadyExists
			}
			return fmt.Errorf("insert entry: %w", insErr)
		}

		res, updErr := tx.NewUpdate().
			TableExpr("requeue_jobs").
			Set("status = ?", string(job.StatusDeadLettered)).
			Set("error_message = ?", entry.ErrorMessage).
			Set("error_details = ?", entry.ErrorDetails).
			Where("id = ?", entry.JobID.String()).
			Exec(ctx)
		if updErr != nil {
			return fmt.Errorf("mark job dead-lettered: %w", updErr)
		}
		rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
		if rows == 0 {
			s.logger.Warn("job record missing while dead-lettering",
				"job_id", entry.JobID.String(),
				"entry_id", entry.ID.String(),
			)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, requeue.ErrEntryAlreadyExists) {
			return requeue.ErrEntryAlreadyExists
		}
		return fmt.Errorf("requeue/bun: write entry: %w", err)
	}
	return nil
}

// GetEntry retrieves a dead letter entry by ID.
func (s *Store) GetEntry(ctx context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	m := new(dlqEntryModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", entryID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, requeue.ErrEntryNotFound
		}
		return nil, fmt.Errorf("requeue/bun: get entry: %w", err)
	}
	return fromEntryModel(m)
}

// UpdateEntry persists a mutated entry guarded by its version. The row
// is only written when the stored version matches the one the entry was
// read with; otherwise requeue.ErrVersionConflict is returned.
func (s *Store) UpdateEntry(ctx context.Context, entry *dlq.Entry) error {
	res, err := s.db.NewUpdate().
		TableExpr("requeue_dlq").
		Set("status = ?", string(entry.Status)).
		Set("last_action_at = ?", entry.LastActionAt).
		Set("last_action_by = ?", nullString(entry.LastActionBy.String())).
		Set("replay_attempts = ?", entry.ReplayAttempts).
		Set("last_replay_error = ?", entry.LastReplayError).
		Set("replayed_job_id = ?", nullString(entry.ReplayedJobID.String())).
		Set("replayed_at = ?", entry.ReplayedAt).
		Set("version = version + 1").
		Where("id = ? AND version = ?", entry.ID.String(), entry.Version).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("requeue/bun: update entry: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		// Distinguish a missing row from a stale version.
		exists, chkErr := s.db.NewSelect().
			TableExpr("requeue_dlq").
			Where("id = ?", entry.ID.String()).
			Exists(ctx)
		if chkErr != nil {
			return fmt.Errorf("requeue/bun: check entry: %w", chkErr)
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
	var models []dlqEntryModel
	q := s.db.NewSelect().Model(&models)

	if !opts.DocumentID.IsNil() {
		q = q.Where("document_id = ?", opts.DocumentID.String())
	}
	if !opts.JobID.IsNil() {
		q = q.Where("job_id = ?", opts.JobID.String())
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if !opts.From.IsZero() {
		q = q.Where("dead_lettered_at >= ?", opts.From)
	}
	if !opts.To.IsZero() {
		q = q.Where("dead_lettered_at < ?", opts.To)
	}

	q = q.Order("dead_lettered_at DESC", "id ASC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("requeue/bun: list entries: %w", err)
	}

	entries := make([]*dlq.Entry, 0, len(models))
	for i := range models {
		e, convErr := fromEntryModel(&models[i])
		if convErr != nil {
			return nil, 0, fmt.Errorf("requeue/bun: list entries convert: %w", convErr)
		}
		entries = append(entries, e)
	}
	return entries, int64(total), nil
}

// EntryMetrics returns aggregate counters over all entries.
func (s *Store) EntryMetrics(ctx context.Context) (*dlq.Metrics, error) {
	var m dlq.Metrics
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'Pending'),
			COUNT(*) FILTER (WHERE status = 'Replayed'),
			COUNT(*) FILTER (WHERE status = 'Discarded'),
			MIN(dead_lettered_at) FILTER (WHERE status = 'Pending')
		FROM requeue_dlq`,
	).Scan(&m.TotalCount, &m.PendingCount, &m.ReplayedCount, &m.DiscardedCount, &m.OldestPendingAt)
	if err != nil {
		return nil, fmt.Errorf("requeue/bun: entry metrics: %w", err)
	}
	return &m, nil
}

// nullString maps the empty string to NULL for optional id columns.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
