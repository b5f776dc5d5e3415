package dlq

import (
	"context"
	"time"

	"github.com/xraph/requeue/id"
)

// ListOpts controls filtering and pagination for DLQ list queries.
// All filters are optional and AND-combined.
type ListOpts struct {
	// DocumentID filters by the originating document.
	DocumentID id.DocumentID
	// JobID filters by the originating processing job.
	JobID id.JobID
	// Status filters by entry status. Empty means all statuses.
	Status Status
	// From and To bound DeadLetteredAt (inclusive from, exclusive to).
	From time.Time
	To   time.Time

	// Limit is the maximum number of entries to return. Zero means no limit.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
}

// Metrics holds aggregate depth counters for the dead letter queue.
type Metrics struct {
	TotalCount     int64      `json:"total_count"`
	PendingCount   int64      `json:"pending_count"`
	ReplayedCount  int64      `json:"replayed_count"`
	DiscardedCount int64      `json:"discarded_count"`
	OldestPendingAt *time.Time `json:"oldest_pending_at,omitempty"`
}

// Store defines the persistence contract for the dead letter queue.
//
// List results are sorted by DeadLetteredAt descending, tie-broken by
// entry ID ascending, so pagination stays stable under concurrent
// inserts.
type Store interface {
	// WriteEntry persists a new entry and, in the same transaction,
	// marks the originating job record as dead-lettered with the
	// entry's error message and details. A missing job record is
	// logged and skipped, never a write failure. On any other failure
	// the whole transaction rolls back.
	WriteEntry(ctx context.Context, entry *Entry) error

	// GetEntry retrieves an entry by ID. Returns
	// requeue.ErrEntryNotFound when absent.
	GetEntry(ctx context.Context, entryID id.DLQID) (*Entry, error)

	// UpdateEntry persists a mutated entry. The entry must carry the
	// Version it was read with; on mismatch the store returns
	// requeue.ErrVersionConflict and writes nothing. On success the
	// stored (and passed) entry's Version is incremented.
	UpdateEntry(ctx context.Context, entry *Entry) error

	// ListEntries returns entries matching opts plus the total number
	// of matches ignoring Limit/Offset.
	ListEntries(ctx context.Context, opts ListOpts) ([]*Entry, int64, error)

	// EntryMetrics returns aggregate counters over all entries.
	EntryMetrics(ctx context.Context) (*Metrics, error)
}
