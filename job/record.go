package job

import (
	"time"

	"github.com/xraph/requeue/id"
)

// Status represents the lifecycle state of a processing job record.
type Status string

const (
	// StatusQueued means the job is waiting to be picked up by a worker.
	StatusQueued Status = "Queued"
	// StatusProcessing means a worker is currently executing the job.
	StatusProcessing Status = "Processing"
	// StatusCompleted means the job finished successfully.
	StatusCompleted Status = "Completed"
	// StatusFailed means the job failed and is awaiting a retry verdict.
	StatusFailed Status = "Failed"
	// StatusDeadLettered means the job was parked in the dead-letter queue.
	StatusDeadLettered Status = "DeadLettered"
)

// Record is the durable status row for a processing job. The dead-letter
// writer flips it to StatusDeadLettered in the same transaction that
// persists the dead-letter entry.
type Record struct {
	ID           id.JobID      `json:"id"`
	DocumentID   id.DocumentID `json:"documentId"`
	Status       Status        `json:"status"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	ErrorDetails string        `json:"errorDetails,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
}
