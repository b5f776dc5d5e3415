package api

import (
	"fmt"
	"time"

	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/id"
)

// ListDLQRequest carries the query filters for the DLQ list endpoint.
// Timestamps are RFC 3339; from is inclusive, to is exclusive.
type ListDLQRequest struct {
	DocumentID string `json:"documentId,omitempty" query:"documentId"`
	JobID      string `json:"jobId,omitempty"      query:"jobId"`
	Status     string `json:"status,omitempty"     query:"status"`
	From       string `json:"from,omitempty"       query:"from"`
	To         string `json:"to,omitempty"         query:"to"`
	Page       int    `json:"page,omitempty"       query:"page"`
	PageSize   int    `json:"pageSize,omitempty"   query:"pageSize"`
}

// filter converts the raw query values into a dlq.Filter.
func (r *ListDLQRequest) filter() (dlq.Filter, error) {
	var f dlq.Filter

	if r.DocumentID != "" {
		docID, err := id.ParseDocumentID(r.DocumentID)
		if err != nil {
			return f, fmt.Errorf("invalid documentId: %w", err)
		}
		f.DocumentID = docID
	}
	if r.JobID != "" {
		jobID, err := id.ParseJobID(r.JobID)
		if err != nil {
			return f, fmt.Errorf("invalid jobId: %w", err)
		}
		f.JobID = jobID
	}
	if r.Status != "" {
		status := dlq.Status(r.Status)
		if !status.Valid() {
			return f, fmt.Errorf("invalid status %q", r.Status)
		}
		f.Status = status
	}
	if r.From != "" {
		from, err := time.Parse(time.RFC3339, r.From)
		if err != nil {
			return f, fmt.Errorf("invalid from timestamp: %w", err)
		}
		f.From = from
	}
	if r.To != "" {
		to, err := time.Parse(time.RFC3339, r.To)
		if err != nil {
			return f, fmt.Errorf("invalid to timestamp: %w", err)
		}
		f.To = to
	}

	return f, nil
}

// GetDLQRequest is the (empty) request for the DLQ detail endpoint.
type GetDLQRequest struct{}

// ReplayDLQRequest identifies the operator performing a replay.
type ReplayDLQRequest struct {
	UserID string `json:"userId,omitempty"`
}

// DiscardDLQRequest identifies the operator performing a discard.
type DiscardDLQRequest struct {
	UserID string `json:"userId,omitempty"`
}

// GetJobRequest is the (empty) request for the job record endpoint.
type GetJobRequest struct{}

// HealthResponse reports the latest DLQ health evaluation.
type HealthResponse struct {
	Status                  dlq.Health `json:"status"`
	PendingCount            int64      `json:"pendingCount"`
	OldestPendingAgeSeconds *float64   `json:"oldestPendingAgeSeconds,omitempty"`
	Error                   string     `json:"error,omitempty"`
	CheckedAt               time.Time  `json:"checkedAt"`
}

func newHealthResponse(r dlq.HealthResult) HealthResponse {
	resp := HealthResponse{
		Status:       r.Status,
		PendingCount: r.PendingCount,
		Error:        r.Error,
		CheckedAt:    r.CheckedAt,
	}
	if r.OldestPendingAge != nil {
		secs := r.OldestPendingAge.Seconds()
		resp.OldestPendingAgeSeconds = &secs
	}
	return resp
}

// parseOperator parses an optional operator user ID. An empty value is
// allowed and maps to the nil ID.
func parseOperator(raw string) (id.UserID, error) {
	if raw == "" {
		return id.Nil, nil
	}
	return id.ParseUserID(raw)
}
