// Package memory provides a fully in-memory store.Store implementation.
// Safe for concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/xraph/requeue"
	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ job.Store = (*Store)(nil)
	_ dlq.Store = (*Store)(nil)
)

// Store is an in-memory implementation of the aggregate store.
type Store struct {
	mu sync.RWMutex

	records map[string]*job.Record
	entries map[string]*dlq.Entry

	logger *slog.Logger
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]*job.Record),
		entries: make(map[string]*dlq.Entry),
		logger:  slog.Default(),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Job record store
// ──────────────────────────────────────────────────

// CreateRecord persists a new job status record.
func (m *Store) CreateRecord(_ context.Context, r *job.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := r.ID.String()
	if _, exists := m.records[key]; exists {
		return requeue.ErrJobAlreadyExists
	}
	cp := *r
	m.records[key] = &cp
	return nil
}

// GetRecord retrieves a job record by ID.
func (m *Store) GetRecord(_ context.Context, jobID id.JobID) (*job.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[jobID.String()]
	if !ok {
		return nil, requeue.ErrJobRecordNotFound
	}
	cp := *r
	return &cp, nil
}

// UpdateRecord persists changes to an existing job record.
func (m *Store) UpdateRecord(_ context.Context, r *job.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := r.ID.String()
	if _, ok := m.records[key]; !ok {
		return requeue.ErrJobRecordNotFound
	}
	cp := *r
	m.records[key] = &cp
	return nil
}

// ──────────────────────────────────────────────────
// Dead letter store
// ──────────────────────────────────────────────────

// WriteEntry persists a new entry and marks the originating job record
// dead-lettered. Both happen under one lock acquisition, mirroring the
// single transaction of the SQL backends. A missing job record is
// logged and skipped.
func (m *Store) WriteEntry(_ context.Context, entry *dlq.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entry.ID.String()
	if _, exists := m.entries[key]; exists {
		return requeue.ErrEntryAlreadyExists
	}

	cp := entry.Clone()
	m.entries[key] = cp

	if r, ok := m.records[entry.JobID.String()]; ok {
		r.Status = job.StatusDeadLettered
		r.ErrorMessage = entry.ErrorMessage
		r.ErrorDetails = entry.ErrorDetails
	} else {
		m.logger.Warn("job record missing during dead-letter write",
			slog.String("job_id", entry.JobID.String()),
			slog.String("entry_id", entry.ID.String()),
		)
	}

	return nil
}

// GetEntry retrieves an entry by ID.
func (m *Store) GetEntry(_ context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[entryID.String()]
	if !ok {
		return nil, requeue.ErrEntryNotFound
	}
	return e.Clone(), nil
}

// UpdateEntry persists a mutated entry if its Version matches the
// stored one, then bumps the version on both.
func (m *Store) UpdateEntry(_ context.Context, entry *dlq.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entry.ID.String()
	stored, ok := m.entries[key]
	if !ok {
		return requeue.ErrEntryNotFound
	}
	if stored.Version != entry.Version {
		return requeue.ErrVersionConflict
	}

	cp := entry.Clone()
	cp.Version++
	m.entries[key] = cp
	entry.Version = cp.Version
	return nil
}

// ListEntries returns entries matching opts plus the total match count.
// Sorted by DeadLetteredAt descending, entry ID ascending.
func (m *Store) ListEntries(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*dlq.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if !matches(e, opts) {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, k int) bool {
		if !matched[i].DeadLetteredAt.Equal(matched[k].DeadLetteredAt) {
			return matched[i].DeadLetteredAt.After(matched[k].DeadLetteredAt)
		}
		return matched[i].ID.String() < matched[k].ID.String()
	})

	total := int64(len(matched))

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return nil, total, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	result := make([]*dlq.Entry, len(matched))
	for i, e := range matched {
		result[i] = e.Clone()
	}
	return result, total, nil
}

func matches(e *dlq.Entry, opts dlq.ListOpts) bool {
	if !opts.DocumentID.IsNil() && e.DocumentID != opts.DocumentID {
		return false
	}
	if !opts.JobID.IsNil() && e.JobID != opts.JobID {
		return false
	}
	if opts.Status != "" && e.Status != opts.Status {
		return false
	}
	if !opts.From.IsZero() && e.DeadLetteredAt.Before(opts.From) {
		return false
	}
	if !opts.To.IsZero() && !e.DeadLetteredAt.Before(opts.To) {
		return false
	}
	return true
}

// EntryMetrics returns aggregate counters over all entries.
func (m *Store) EntryMetrics(_ context.Context) (*dlq.Metrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := &dlq.Metrics{}
	for _, e := range m.entries {
		metrics.TotalCount++
		switch e.Status {
		case dlq.StatusPending:
			metrics.PendingCount++
			if metrics.OldestPendingAt == nil || e.DeadLetteredAt.Before(*metrics.OldestPendingAt) {
				t := e.DeadLetteredAt
				metrics.OldestPendingAt = &t
			}
		case dlq.StatusReplayed:
			metrics.ReplayedCount++
		case dlq.StatusDiscarded:
			metrics.DiscardedCount++
		}
	}
	return metrics, nil
}
