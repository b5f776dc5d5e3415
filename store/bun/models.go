package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
)

// ── Job record model ──────────────────────────────────────────────

type jobRecordModel struct {
	bun.BaseModel `bun:"table:requeue_jobs"`

	ID           string     `bun:"id,pk"`
	DocumentID   string     `bun:"document_id,notnull"`
	Status       string     `bun:"status,notnull,default:'Queued'"`
	ErrorMessage string     `bun:"error_message,notnull,default:''"`
	ErrorDetails string     `bun:"error_details,notnull,default:''"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	CompletedAt  *time.Time `bun:"completed_at"`
}

func toRecordModel(r *job.Record) *jobRecordModel {
	return &jobRecordModel{
		ID:           r.ID.String(),
		DocumentID:   r.DocumentID.String(),
		Status:       string(r.Status),
		ErrorMessage: r.ErrorMessage,
		ErrorDetails: r.ErrorDetails,
		CreatedAt:    r.CreatedAt,
		CompletedAt:  r.CompletedAt,
	}
}

func fromRecordModel(m *jobRecordModel) (*job.Record, error) {
	parsedID, err := id.ParseJobID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("requeue/bun: parse job id %q: %w", m.ID, err)
	}

	parsedDocID, err := id.ParseDocumentID(m.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("requeue/bun: parse document id %q: %w", m.DocumentID, err)
	}

	return &job.Record{
		ID:           parsedID,
		DocumentID:   parsedDocID,
		Status:       job.Status(m.Status),
		ErrorMessage: m.ErrorMessage,
		ErrorDetails: m.ErrorDetails,
		CreatedAt:    m.CreatedAt,
		CompletedAt:  m.CompletedAt,
	}, nil
}

// ── Dead letter entry model ───────────────────────────────────────

type dlqEntryModel struct {
	bun.BaseModel `bun:"table:requeue_dlq"`

	ID              string     `bun:"id,pk"`
	JobID           string     `bun:"job_id,notnull"`
	DocumentID      string     `bun:"document_id,notnull"`
	OriginalMessage string     `bun:"original_message,notnull"`
	SchemaVersion   string     `bun:"schema_version,notnull"`
	ErrorMessage    string     `bun:"error_message,notnull,default:''"`
	ErrorDetails    string     `bun:"error_details,notnull,default:''"`
	RetryHistory    string     `bun:"retry_history,notnull,default:''"`
	RetryCount      int        `bun:"retry_count,notnull,default:0"`
	Reason          string     `bun:"reason,notnull,default:'Unknown'"`
	DeadLetteredAt  time.Time  `bun:"dead_lettered_at,notnull,default:current_timestamp"`
	Status          string     `bun:"status,notnull,default:'Pending'"`
	LastActionAt    *time.Time `bun:"last_action_at"`
	LastActionBy    string     `bun:"last_action_by,nullzero"`
	ReplayAttempts  int        `bun:"replay_attempts,notnull,default:0"`
	LastReplayError string     `bun:"last_replay_error,notnull,default:''"`
	ReplayedJobID   string     `bun:"replayed_job_id,nullzero"`
	ReplayedAt      *time.Time `bun:"replayed_at"`
	Version         int64      `bun:"version,notnull,default:0"`
}

func toEntryModel(e *dlq.Entry) *dlqEntryModel {
	return &dlqEntryModel{
		ID:              e.ID.String(),
		JobID:           e.JobID.String(),
		DocumentID:      e.DocumentID.String(),
		OriginalMessage: e.OriginalMessage,
		SchemaVersion:   e.SchemaVersion,
		ErrorMessage:    e.ErrorMessage,
		ErrorDetails:    e.ErrorDetails,
		RetryHistory:    e.RetryHistory,
		RetryCount:      e.RetryCount,
		Reason:          e.Reason,
		DeadLetteredAt:  e.DeadLetteredAt,
		Status:          string(e.Status),
		LastActionAt:    e.LastActionAt,
		LastActionBy:    e.LastActionBy.String(),
		ReplayAttempts:  e.ReplayAttempts,
		LastReplayError: e.LastReplayError,
		ReplayedJobID:   e.ReplayedJobID.String(),
		ReplayedAt:      e.ReplayedAt,
		Version:         e.Version,
	}
}

func fromEntryModel(m *dlqEntryModel) (*dlq.Entry, error) {
	parsedID, err := id.ParseDLQID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("requeue/bun: parse entry id %q: %w", m.ID, err)
	}

	parsedJobID, err := id.ParseJobID(m.JobID)
	if err != nil {
		return nil, fmt.Errorf("requeue/bun: parse job id %q: %w", m.JobID, err)
	}

	parsedDocID, err := id.ParseDocumentID(m.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("requeue/bun: parse document id %q: %w", m.DocumentID, err)
	}

	e := &dlq.Entry{
		ID:              parsedID,
		JobID:           parsedJobID,
		DocumentID:      parsedDocID,
		OriginalMessage: m.OriginalMessage,
		SchemaVersion:   m.SchemaVersion,
		ErrorMessage:    m.ErrorMessage,
		ErrorDetails:    m.ErrorDetails,
		RetryHistory:    m.RetryHistory,
		RetryCount:      m.RetryCount,
		Reason:          m.Reason,
		DeadLetteredAt:  m.DeadLetteredAt,
		Status:          dlq.Status(m.Status),
		LastActionAt:    m.LastActionAt,
		ReplayAttempts:  m.ReplayAttempts,
		LastReplayError: m.LastReplayError,
		ReplayedAt:      m.ReplayedAt,
		Version:         m.Version,
	}

	if m.LastActionBy != "" {
		parsedUser, uErr := id.ParseUserID(m.LastActionBy)
		if uErr == nil {
			e.LastActionBy = parsedUser
		}
	}
	if m.ReplayedJobID != "" {
		parsedReplay, rErr := id.ParseJobID(m.ReplayedJobID)
		if rErr == nil {
			e.ReplayedJobID = parsedReplay
		}
	}

	return e, nil
}
