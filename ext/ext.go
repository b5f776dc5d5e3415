// Package ext defines the extension system for requeue.
// Extensions are notified of lifecycle events (retry scheduled, job
// dead-lettered, entry replayed, etc.) and can react to them — audit
// trails, metrics, alerting.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Retry lifecycle hooks
// ──────────────────────────────────────────────────

// RetryScheduled is called after a retry attempt is published.
type RetryScheduled interface {
	OnRetryScheduled(ctx context.Context, msg *job.Message, attempt int, delay time.Duration) error
}

// JobDeadLettered is called after a job is durably parked in the
// dead-letter queue.
type JobDeadLettered interface {
	OnJobDeadLettered(ctx context.Context, entryID id.DLQID, msg *job.Message, reason string) error
}

// ──────────────────────────────────────────────────
// Operator action hooks
// ──────────────────────────────────────────────────

// EntryReplayed is called after an operator successfully replays a
// dead-letter entry.
type EntryReplayed interface {
	OnEntryReplayed(ctx context.Context, entryID id.DLQID, newJobID id.JobID, operator id.UserID) error
}

// EntryDiscarded is called after an operator discards a dead-letter entry.
type EntryDiscarded interface {
	OnEntryDiscarded(ctx context.Context, entryID id.DLQID, operator id.UserID) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// HealthEvaluated is called after each dead-letter queue health
// evaluation.
type HealthEvaluated interface {
	OnHealthEvaluated(ctx context.Context, status string, pendingCount int, oldestPendingAge time.Duration) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
