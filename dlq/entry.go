package dlq

import (
	"time"

	"github.com/xraph/requeue/id"
)

// Status is the lifecycle state of a dead letter entry.
type Status string

// Entry lifecycle states. Pending entries await operator action;
// Replayed and Discarded are terminal apart from idempotent re-acks.
const (
	StatusPending   Status = "Pending"
	StatusReplayed  Status = "Replayed"
	StatusDiscarded Status = "Discarded"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReplayed, StatusDiscarded:
		return true
	}
	return false
}

// Entry is a durable record of a job that was moved to the dead letter
// queue. The original message is stored serialized with its storage
// path redacted; the raw path never reaches durable storage.
type Entry struct {
	ID         id.DLQID      `json:"id"`
	JobID      id.JobID      `json:"job_id"`
	DocumentID id.DocumentID `json:"document_id"`

	// OriginalMessage is the failed job message serialized as text,
	// with the storage path redacted. SchemaVersion tags the message
	// format so old entries stay replayable across format changes.
	OriginalMessage string `json:"original_message"`
	SchemaVersion   string `json:"schema_version"`

	ErrorMessage string `json:"error_message"`
	ErrorDetails string `json:"error_details,omitempty"`
	RetryHistory string `json:"retry_history,omitempty"`
	RetryCount   int    `json:"retry_count"`
	Reason       string `json:"reason"`

	DeadLetteredAt time.Time `json:"dead_lettered_at"`
	Status         Status    `json:"status"`

	LastActionAt *time.Time `json:"last_action_at,omitempty"`
	LastActionBy id.UserID  `json:"last_action_by,omitempty"`

	ReplayAttempts  int       `json:"replay_attempts"`
	LastReplayError string    `json:"last_replay_error,omitempty"`
	ReplayedJobID   id.JobID  `json:"replayed_job_id,omitempty"`
	ReplayedAt      *time.Time `json:"replayed_at,omitempty"`

	// Version is the optimistic concurrency token. The store bumps it
	// on every successful update and rejects updates carrying a stale
	// value with requeue.ErrVersionConflict.
	Version int64 `json:"version"`
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	cp := *e
	if e.LastActionAt != nil {
		t := *e.LastActionAt
		cp.LastActionAt = &t
	}
	if e.ReplayedAt != nil {
		t := *e.ReplayedAt
		cp.ReplayedAt = &t
	}
	return &cp
}
