package dlq

import (
	"time"

	"github.com/xraph/requeue/id"
)

// Operator-facing response shapes. Field names are part of the API
// contract; keep them stable.

// Summary is the list-view projection of an entry.
type Summary struct {
	ID               id.DLQID      `json:"id"`
	ProcessingJobID  id.JobID      `json:"processingJobId"`
	DocumentID       id.DocumentID `json:"documentId"`
	ErrorMessage     string        `json:"errorMessage"`
	RetryCount       int           `json:"retryCount"`
	DeadLetterReason string        `json:"deadLetterReason"`
	DeadLetteredAt   time.Time     `json:"deadLetteredAt"`
	Status           Status        `json:"status"`
	LastActionAt     *time.Time    `json:"lastActionAt"`
	ReplayAttempts   int           `json:"replayAttempts"`
}

// Detail is the full projection of an entry.
type Detail struct {
	Summary

	OriginalMessage      string    `json:"originalMessage"`
	MessageSchemaVersion string    `json:"messageSchemaVersion"`
	ErrorDetails         string    `json:"errorDetails"`
	RetryHistory         string    `json:"retryHistory"`
	LastActionByUserID   id.UserID `json:"lastActionByUserId"`
	LastReplayError      string    `json:"lastReplayError"`
	ReplayedJobID        *id.JobID `json:"replayedJobId"`
}

// ListResponse is one page of summaries plus pagination metadata.
type ListResponse struct {
	Items           []Summary `json:"items"`
	Page            int       `json:"page"`
	PageSize        int       `json:"pageSize"`
	TotalItems      int64     `json:"totalItems"`
	TotalPages      int       `json:"totalPages"`
	HasNextPage     bool      `json:"hasNextPage"`
	HasPreviousPage bool      `json:"hasPreviousPage"`
}

// ReplayResult is the outcome of a replay operation.
type ReplayResult struct {
	DeadLetterJobID id.DLQID  `json:"deadLetterJobId"`
	NewJobID        *id.JobID `json:"newJobId"`
	Status          Status    `json:"status"`
	ReplayAttempts  int       `json:"replayAttempts"`
	Success         bool      `json:"success"`
	Message         string    `json:"message"`
}

// DiscardResult is the outcome of a discard operation.
type DiscardResult struct {
	DeadLetterJobID id.DLQID `json:"deadLetterJobId"`
	Status          Status   `json:"status"`
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
}

// MetricsResponse reports queue depth and the derived health level.
type MetricsResponse struct {
	TotalCount              int64      `json:"totalCount"`
	PendingCount            int64      `json:"pendingCount"`
	ReplayedCount           int64      `json:"replayedCount"`
	DiscardedCount          int64      `json:"discardedCount"`
	OldestPendingAgeSeconds *float64   `json:"oldestPendingAgeSeconds"`
	OldestPendingAt         *time.Time `json:"oldestPendingAt"`
	HealthStatus            Health     `json:"healthStatus"`
	Timestamp               time.Time  `json:"timestamp"`
}

// NewSummary projects an entry into its list view.
func NewSummary(e *Entry) Summary {
	return Summary{
		ID:               e.ID,
		ProcessingJobID:  e.JobID,
		DocumentID:       e.DocumentID,
		ErrorMessage:     e.ErrorMessage,
		RetryCount:       e.RetryCount,
		DeadLetterReason: e.Reason,
		DeadLetteredAt:   e.DeadLetteredAt,
		Status:           e.Status,
		LastActionAt:     e.LastActionAt,
		ReplayAttempts:   e.ReplayAttempts,
	}
}

// NewDetail projects an entry into its full view.
func NewDetail(e *Entry) Detail {
	d := Detail{
		Summary:              NewSummary(e),
		OriginalMessage:      e.OriginalMessage,
		MessageSchemaVersion: e.SchemaVersion,
		ErrorDetails:         e.ErrorDetails,
		RetryHistory:         e.RetryHistory,
		LastActionByUserID:   e.LastActionBy,
		LastReplayError:      e.LastReplayError,
	}
	if !e.ReplayedJobID.IsNil() {
		jobID := e.ReplayedJobID
		d.ReplayedJobID = &jobID
	}
	return d
}

// NewListResponse projects a page of entries into the list response.
func NewListResponse(page *PageResult) ListResponse {
	items := make([]Summary, 0, len(page.Entries))
	for _, e := range page.Entries {
		items = append(items, NewSummary(e))
	}
	return ListResponse{
		Items:           items,
		Page:            page.Page,
		PageSize:        page.PageSize,
		TotalItems:      page.TotalItems,
		TotalPages:      page.TotalPages,
		HasNextPage:     page.HasNextPage,
		HasPreviousPage: page.HasPreviousPage,
	}
}

// NewMetricsResponse projects metrics into the response shape.
func NewMetricsResponse(m *MetricsResult) MetricsResponse {
	resp := MetricsResponse{
		TotalCount:      m.TotalCount,
		PendingCount:    m.PendingCount,
		ReplayedCount:   m.ReplayedCount,
		DiscardedCount:  m.DiscardedCount,
		OldestPendingAt: m.OldestPendingAt,
		HealthStatus:    m.HealthStatus,
		Timestamp:       m.Timestamp,
	}
	if m.OldestPendingAge != nil {
		secs := m.OldestPendingAge.Seconds()
		resp.OldestPendingAgeSeconds = &secs
	}
	return resp
}
