package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/requeue"
	"github.com/xraph/requeue/ext"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
	"github.com/xraph/requeue/queue"
)

// Operator response messages. Stable strings: operator tooling matches
// on them.
const (
	msgNotFound          = "Dead letter entry not found."
	msgDiscardedNoReplay = "Cannot replay a discarded entry."
	msgReplayedNoDiscard = "Cannot discard a replayed entry."
	msgAlreadyReplayed   = "Entry was already replayed."
	msgAlreadyDiscarded  = "Entry was already discarded."
	msgReplayed          = "Entry replayed."
	msgDiscarded         = "Entry discarded."
	msgBadStoredMessage  = "Stored message could not be deserialized."
	msgPublishFailed     = "Failed to publish replay job. The entry remains pending."
	msgConflict          = "Concurrent modification detected. Please retry."
)

// Actions implements the operator-facing replay and discard operations.
//
// Expected failures (unknown entry, discarded entry, publish failure,
// concurrent modification) are reported through the result's Success
// and Message fields; the error return is reserved for store failures
// the operator cannot act on.
type Actions struct {
	store      Store
	publisher  queue.Publisher
	extensions *ext.Registry
	logger     *slog.Logger
}

// ActionsOption configures Actions.
type ActionsOption func(*Actions)

// WithActionsLogger sets the logger.
func WithActionsLogger(logger *slog.Logger) ActionsOption {
	return func(a *Actions) { a.logger = logger }
}

// WithActionsExtensions sets the extension registry notified after
// successful replay and discard.
func WithActionsExtensions(reg *ext.Registry) ActionsOption {
	return func(a *Actions) { a.extensions = reg }
}

// NewActions creates Actions backed by store, publishing replays via
// publisher.
func NewActions(store Store, publisher queue.Publisher, opts ...ActionsOption) *Actions {
	a := &Actions{
		store:     store,
		publisher: publisher,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.extensions == nil {
		a.extensions = ext.NewRegistry(a.logger)
	}
	return a
}

// Replay re-enqueues a dead-lettered job as a fresh message: new job
// ID, retry count reset to zero, correlation ID tying it back to the
// entry. Replaying an already-replayed entry is an idempotent no-op
// that reports the original replay's job ID; replaying a discarded
// entry is rejected.
func (a *Actions) Replay(ctx context.Context, entryID id.DLQID, operator id.UserID) (*ReplayResult, error) {
	entry, err := a.store.GetEntry(ctx, entryID)
	if errors.Is(err, requeue.ErrEntryNotFound) {
		return &ReplayResult{DeadLetterJobID: entryID, Message: msgNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dlq: load entry %s: %w", entryID, err)
	}

	if entry.Status == StatusDiscarded {
		return replayFailure(entry, msgDiscardedNoReplay), nil
	}

	if entry.Status == StatusReplayed && !entry.ReplayedJobID.IsNil() {
		newJobID := entry.ReplayedJobID
		return &ReplayResult{
			DeadLetterJobID: entry.ID,
			NewJobID:        &newJobID,
			Status:          entry.Status,
			ReplayAttempts:  entry.ReplayAttempts,
			Success:         true,
			Message:         msgAlreadyReplayed,
		}, nil
	}

	var original job.Message
	if err := json.Unmarshal([]byte(entry.OriginalMessage), &original); err != nil {
		// The stored message is the durable record of this exact
		// problem: record the failure on the entry instead of
		// propagating it.
		return a.recordReplayFailure(ctx, entry, operator,
			fmt.Sprintf("deserialize stored message: %v", err), msgBadStoredMessage)
	}

	replay := original.Replay(entry.ID)

	if err := a.publisher.Publish(ctx, replay); err != nil {
		return a.recordReplayFailure(ctx, entry, operator,
			fmt.Sprintf("publish replay: %v", err), msgPublishFailed)
	}

	prev := entry.Clone()
	now := time.Now().UTC()
	entry.Status = StatusReplayed
	entry.ReplayedJobID = replay.JobID
	entry.ReplayedAt = &now
	entry.ReplayAttempts++
	entry.LastReplayError = ""
	entry.LastActionAt = &now
	entry.LastActionBy = operator

	if err := a.store.UpdateEntry(ctx, entry); err != nil {
		if errors.Is(err, requeue.ErrVersionConflict) {
			// The replay message is already published; at-least-once
			// delivery makes the duplicate acceptable.
			a.logger.Warn("replay commit lost version race",
				slog.String("entry_id", entry.ID.String()),
				slog.String("new_job_id", replay.JobID.String()),
			)
			return replayFailure(prev, msgConflict), nil
		}
		return nil, fmt.Errorf("dlq: commit replay of %s: %w", entry.ID, err)
	}

	a.logger.Info("entry replayed",
		slog.String("entry_id", entry.ID.String()),
		slog.String("new_job_id", replay.JobID.String()),
		slog.String("operator", operator.String()),
		slog.Int("replay_attempts", entry.ReplayAttempts),
	)

	a.extensions.EmitEntryReplayed(ctx, entry.ID, replay.JobID, operator)

	newJobID := replay.JobID
	return &ReplayResult{
		DeadLetterJobID: entry.ID,
		NewJobID:        &newJobID,
		Status:          entry.Status,
		ReplayAttempts:  entry.ReplayAttempts,
		Success:         true,
		Message:         msgReplayed,
	}, nil
}

// recordReplayFailure commits a failed replay attempt onto the entry:
// attempt counter bumped, error text stored, status left Pending.
func (a *Actions) recordReplayFailure(ctx context.Context, entry *Entry, operator id.UserID, replayErr, msg string) (*ReplayResult, error) {
	prev := entry.Clone()
	now := time.Now().UTC()
	entry.ReplayAttempts++
	entry.LastReplayError = truncate(replayErr, maxErrorLen)
	entry.LastActionAt = &now
	entry.LastActionBy = operator

	if err := a.store.UpdateEntry(ctx, entry); err != nil {
		if errors.Is(err, requeue.ErrVersionConflict) {
			return replayFailure(prev, msgConflict), nil
		}
		return nil, fmt.Errorf("dlq: record replay failure on %s: %w", entry.ID, err)
	}

	a.logger.Warn("replay attempt failed",
		slog.String("entry_id", entry.ID.String()),
		slog.String("operator", operator.String()),
		slog.Int("replay_attempts", entry.ReplayAttempts),
		slog.String("error", replayErr),
	)

	return replayFailure(entry, msg), nil
}

func replayFailure(entry *Entry, msg string) *ReplayResult {
	return &ReplayResult{
		DeadLetterJobID: entry.ID,
		Status:          entry.Status,
		ReplayAttempts:  entry.ReplayAttempts,
		Message:         msg,
	}
}

// Discard marks a pending entry as permanently discarded. Discarding
// an already-discarded entry is an idempotent success; discarding a
// replayed entry is rejected.
func (a *Actions) Discard(ctx context.Context, entryID id.DLQID, operator id.UserID) (*DiscardResult, error) {
	entry, err := a.store.GetEntry(ctx, entryID)
	if errors.Is(err, requeue.ErrEntryNotFound) {
		return &DiscardResult{DeadLetterJobID: entryID, Message: msgNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dlq: load entry %s: %w", entryID, err)
	}

	switch entry.Status {
	case StatusDiscarded:
		return &DiscardResult{
			DeadLetterJobID: entry.ID,
			Status:          entry.Status,
			Success:         true,
			Message:         msgAlreadyDiscarded,
		}, nil
	case StatusReplayed:
		return &DiscardResult{
			DeadLetterJobID: entry.ID,
			Status:          entry.Status,
			Message:         msgReplayedNoDiscard,
		}, nil
	case StatusPending:
		// fall through to the discard below
	}

	prevStatus := entry.Status
	now := time.Now().UTC()
	entry.Status = StatusDiscarded
	entry.LastActionAt = &now
	entry.LastActionBy = operator

	if err := a.store.UpdateEntry(ctx, entry); err != nil {
		if errors.Is(err, requeue.ErrVersionConflict) {
			return &DiscardResult{
				DeadLetterJobID: entry.ID,
				Status:          prevStatus,
				Message:         msgConflict,
			}, nil
		}
		return nil, fmt.Errorf("dlq: commit discard of %s: %w", entry.ID, err)
	}

	a.logger.Info("entry discarded",
		slog.String("entry_id", entry.ID.String()),
		slog.String("operator", operator.String()),
	)

	a.extensions.EmitEntryDiscarded(ctx, entry.ID, operator)

	return &DiscardResult{
		DeadLetterJobID: entry.ID,
		Status:          entry.Status,
		Success:         true,
		Message:         msgDiscarded,
	}, nil
}
