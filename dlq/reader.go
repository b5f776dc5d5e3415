package dlq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/requeue/id"
)

// Health is the three-level signal derived from DLQ depth and age.
type Health string

// Health levels, least to most severe.
const (
	HealthHealthy   Health = "Healthy"
	HealthDegraded  Health = "Degraded"
	HealthUnhealthy Health = "Unhealthy"
)

// Thresholds define when DLQ depth or pending age degrades health.
// A warning threshold met yields Degraded, a critical threshold
// Unhealthy.
type Thresholds struct {
	WarningPending  int64
	CriticalPending int64
	WarningAge      time.Duration
	CriticalAge     time.Duration
}

// DefaultThresholds returns the standard health thresholds: warning at
// 100 pending entries or a 1 hour oldest age, critical at 500 pending
// entries or 24 hours.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarningPending:  100,
		CriticalPending: 500,
		WarningAge:      time.Hour,
		CriticalAge:     24 * time.Hour,
	}
}

// Evaluate maps a pending count and oldest-pending age onto a Health
// level. A nil age means no pending entries.
func (t Thresholds) Evaluate(pending int64, oldestAge *time.Duration) Health {
	age := time.Duration(0)
	if oldestAge != nil {
		age = *oldestAge
	}

	switch {
	case pending >= t.CriticalPending || age >= t.CriticalAge:
		return HealthUnhealthy
	case pending >= t.WarningPending || age >= t.WarningAge:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}

// Filter narrows List queries. All fields are optional and AND-combined.
type Filter struct {
	DocumentID id.DocumentID
	JobID      id.JobID
	Status     Status
	From       time.Time
	To         time.Time
}

// Page bounds for List.
const (
	MinPageSize = 1
	MaxPageSize = 100
)

// PageResult is one page of entries plus pagination metadata.
type PageResult struct {
	Entries         []*Entry
	Page            int
	PageSize        int
	TotalItems      int64
	TotalPages      int
	HasNextPage     bool
	HasPreviousPage bool
}

// MetricsResult extends the raw store counters with the derived oldest
// pending age and health level.
type MetricsResult struct {
	Metrics
	OldestPendingAge *time.Duration
	HealthStatus     Health
	Timestamp        time.Time
}

// Reader provides paginated queries and depth metrics over the dead
// letter queue.
type Reader struct {
	store      Store
	thresholds Thresholds
	logger     *slog.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithReaderLogger sets the logger.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(r *Reader) { r.logger = logger }
}

// WithThresholds overrides the default health thresholds.
func WithThresholds(t Thresholds) ReaderOption {
	return func(r *Reader) { r.thresholds = t }
}

// NewReader creates a Reader backed by store.
func NewReader(store Store, opts ...ReaderOption) *Reader {
	r := &Reader{
		store:      store,
		thresholds: DefaultThresholds(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns one page of entries matching filter, newest first.
// Page numbers below 1 are clamped to 1; page sizes are clamped to
// [MinPageSize, MaxPageSize].
func (r *Reader) List(ctx context.Context, filter Filter, page, pageSize int) (*PageResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < MinPageSize {
		pageSize = MinPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	opts := ListOpts{
		DocumentID: filter.DocumentID,
		JobID:      filter.JobID,
		Status:     filter.Status,
		From:       filter.From,
		To:         filter.To,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}

	entries, total, err := r.store.ListEntries(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dlq: list entries: %w", err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &PageResult{
		Entries:         entries,
		Page:            page,
		PageSize:        pageSize,
		TotalItems:      total,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}, nil
}

// GetByID retrieves a single entry. Returns requeue.ErrEntryNotFound
// when absent.
func (r *Reader) GetByID(ctx context.Context, entryID id.DLQID) (*Entry, error) {
	return r.store.GetEntry(ctx, entryID)
}

// Metrics returns the queue's depth counters with the derived health
// level.
func (r *Reader) Metrics(ctx context.Context) (*MetricsResult, error) {
	m, err := r.store.EntryMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("dlq: metrics: %w", err)
	}

	now := time.Now().UTC()

	var oldestAge *time.Duration
	if m.OldestPendingAt != nil {
		age := now.Sub(*m.OldestPendingAt)
		if age < 0 {
			age = 0
		}
		oldestAge = &age
	}

	return &MetricsResult{
		Metrics:          *m,
		OldestPendingAge: oldestAge,
		HealthStatus:     r.thresholds.Evaluate(m.PendingCount, oldestAge),
		Timestamp:        now,
	}, nil
}
