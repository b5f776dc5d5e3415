package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type retryScheduledEntry struct {
	name string
	hook RetryScheduled
}

type jobDeadLetteredEntry struct {
	name string
	hook JobDeadLettered
}

type entryReplayedEntry struct {
	name string
	hook EntryReplayed
}

type entryDiscardedEntry struct {
	name string
	hook EntryDiscarded
}

type healthEvaluatedEntry struct {
	name string
	hook HealthEvaluated
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	retryScheduled  []retryScheduledEntry
	jobDeadLettered []jobDeadLetteredEntry
	entryReplayed   []entryReplayedEntry
	entryDiscarded  []entryDiscardedEntry
	healthEvaluated []healthEvaluatedEntry
	shutdown        []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(RetryScheduled); ok {
		r.retryScheduled = append(r.retryScheduled, retryScheduledEntry{name, h})
	}
	if h, ok := e.(JobDeadLettered); ok {
		r.jobDeadLettered = append(r.jobDeadLettered, jobDeadLetteredEntry{name, h})
	}
	if h, ok := e.(EntryReplayed); ok {
		r.entryReplayed = append(r.entryReplayed, entryReplayedEntry{name, h})
	}
	if h, ok := e.(EntryDiscarded); ok {
		r.entryDiscarded = append(r.entryDiscarded, entryDiscardedEntry{name, h})
	}
	if h, ok := e.(HealthEvaluated); ok {
		r.healthEvaluated = append(r.healthEvaluated, healthEvaluatedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Event emitters
// ──────────────────────────────────────────────────

// EmitRetryScheduled notifies all extensions that implement RetryScheduled.
func (r *Registry) EmitRetryScheduled(ctx context.Context, msg *job.Message, attempt int, delay time.Duration) {
	for _, e := range r.retryScheduled {
		if err := e.hook.OnRetryScheduled(ctx, msg, attempt, delay); err != nil {
			r.logHookError("OnRetryScheduled", e.name, err)
		}
	}
}

// EmitJobDeadLettered notifies all extensions that implement JobDeadLettered.
func (r *Registry) EmitJobDeadLettered(ctx context.Context, entryID id.DLQID, msg *job.Message, reason string) {
	for _, e := range r.jobDeadLettered {
		if err := e.hook.OnJobDeadLettered(ctx, entryID, msg, reason); err != nil {
			r.logHookError("OnJobDeadLettered", e.name, err)
		}
	}
}

// EmitEntryReplayed notifies all extensions that implement EntryReplayed.
func (r *Registry) EmitEntryReplayed(ctx context.Context, entryID id.DLQID, newJobID id.JobID, operator id.UserID) {
	for _, e := range r.entryReplayed {
		if err := e.hook.OnEntryReplayed(ctx, entryID, newJobID, operator); err != nil {
			r.logHookError("OnEntryReplayed", e.name, err)
		}
	}
}

// EmitEntryDiscarded notifies all extensions that implement EntryDiscarded.
func (r *Registry) EmitEntryDiscarded(ctx context.Context, entryID id.DLQID, operator id.UserID) {
	for _, e := range r.entryDiscarded {
		if err := e.hook.OnEntryDiscarded(ctx, entryID, operator); err != nil {
			r.logHookError("OnEntryDiscarded", e.name, err)
		}
	}
}

// EmitHealthEvaluated notifies all extensions that implement HealthEvaluated.
func (r *Registry) EmitHealthEvaluated(ctx context.Context, status string, pendingCount int, oldestPendingAge time.Duration) {
	for _, e := range r.healthEvaluated {
		if err := e.hook.OnHealthEvaluated(ctx, status, pendingCount, oldestPendingAge); err != nil {
			r.logHookError("OnHealthEvaluated", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not change the
// outcome of the operation that emitted the event.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
