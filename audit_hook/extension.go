package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/requeue/ext"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension       = (*Extension)(nil)
	_ ext.RetryScheduled  = (*Extension)(nil)
	_ ext.JobDeadLettered = (*Extension)(nil)
	_ ext.EntryReplayed   = (*Extension)(nil)
	_ ext.EntryDiscarded  = (*Extension)(nil)
	_ ext.HealthEvaluated = (*Extension)(nil)
	_ ext.Shutdown        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so this package does not depend on any one
// audit system — callers inject their concrete backend at wiring time.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is the structured record handed to the Recorder.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

const defaultBufferSize = 256

// Extension bridges requeue lifecycle events to an audit trail backend.
// Events are drained by a background goroutine; the hooks themselves
// never block on the Recorder.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger

	events chan *AuditEvent
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// New creates an Extension that emits audit events through the provided
// Recorder and starts its drain goroutine.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.events == nil {
		e.events = make(chan *AuditEvent, defaultBufferSize)
	}

	e.wg.Add(1)
	go e.drain()

	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// Close stops the drain goroutine after flushing queued events.
func (e *Extension) Close() {
	e.closeOnce.Do(func() {
		close(e.events)
		e.wg.Wait()
	})
}

// ── Lifecycle hooks ─────────────────────────────────

// OnRetryScheduled implements ext.RetryScheduled.
func (e *Extension) OnRetryScheduled(_ context.Context, msg *job.Message, attempt int, delay time.Duration) error {
	e.enqueue(ActionRetryScheduled, SeverityWarning, OutcomeFailure,
		ResourceJob, msg.JobID.String(), CategoryRetry, "",
		"document_id", msg.DocumentID.String(),
		"attempt", attempt,
		"delay_ms", delay.Milliseconds(),
	)
	return nil
}

// OnJobDeadLettered implements ext.JobDeadLettered.
func (e *Extension) OnJobDeadLettered(_ context.Context, entryID id.DLQID, msg *job.Message, reason string) error {
	e.enqueue(ActionJobDeadLettered, SeverityCritical, OutcomeFailure,
		ResourceEntry, entryID.String(), CategoryDLQ, reason,
		"job_id", msg.JobID.String(),
		"document_id", msg.DocumentID.String(),
		"retry_count", msg.RetryCount,
	)
	return nil
}

// OnEntryReplayed implements ext.EntryReplayed.
func (e *Extension) OnEntryReplayed(_ context.Context, entryID id.DLQID, newJobID id.JobID, operator id.UserID) error {
	e.enqueue(ActionEntryReplayed, SeverityInfo, OutcomeSuccess,
		ResourceEntry, entryID.String(), CategoryDLQ, "",
		"new_job_id", newJobID.String(),
		"operator_id", operator.String(),
	)
	return nil
}

// OnEntryDiscarded implements ext.EntryDiscarded.
func (e *Extension) OnEntryDiscarded(_ context.Context, entryID id.DLQID, operator id.UserID) error {
	e.enqueue(ActionEntryDiscarded, SeverityWarning, OutcomeSuccess,
		ResourceEntry, entryID.String(), CategoryDLQ, "",
		"operator_id", operator.String(),
	)
	return nil
}

// OnHealthEvaluated implements ext.HealthEvaluated. Only degraded and
// unhealthy evaluations are recorded; a healthy queue is not an
// auditable event.
func (e *Extension) OnHealthEvaluated(_ context.Context, status string, pendingCount int, oldestPendingAge time.Duration) error {
	if status == "Healthy" {
		return nil
	}
	e.enqueue(ActionHealthEvaluated, SeverityWarning, OutcomeFailure,
		ResourceEntry, "", CategoryDLQ, "",
		"status", status,
		"pending_count", pendingCount,
		"oldest_pending_age_ms", oldestPendingAge.Milliseconds(),
	)
	return nil
}

// OnShutdown implements ext.Shutdown.
func (e *Extension) OnShutdown(_ context.Context) error {
	e.Close()
	return nil
}

// ── Internal helpers ────────────────────────────────

// enqueue builds an audit event and queues it for the drain goroutine.
// If the buffer is full the event is dropped with a log line rather
// than blocking the caller.
func (e *Extension) enqueue(
	action, severity, outcome string,
	resource, resourceID, category, reason string,
	kvPairs ...any,
) {
	if e.enabled != nil && !e.enabled[action] {
		return
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	select {
	case e.events <- evt:
	default:
		e.logger.Warn("audit_hook: event buffer full, dropping event",
			"action", action,
			"resource_id", resourceID,
		)
	}
}

// drain delivers queued events to the Recorder until the channel closes.
func (e *Extension) drain() {
	defer e.wg.Done()

	for evt := range e.events {
		if err := e.recorder.Record(context.Background(), evt); err != nil {
			e.logger.Warn("audit_hook: failed to record audit event",
				"action", evt.Action,
				"resource_id", evt.ResourceID,
				"error", err,
			)
		}
	}
}
