package retry

import "time"

// Decision is the verdict for one failure event. Exactly one of
// ShouldRetry and MoveToDLQ is true.
type Decision struct {
	// ShouldRetry indicates the job should be re-published for another
	// attempt.
	ShouldRetry bool `json:"shouldRetry"`

	// Delay is the advisory backoff before the retry publish. The engine
	// never sleeps on it; deferral is the caller's responsibility.
	Delay time.Duration `json:"delay"`

	// MoveToDLQ indicates the job must be parked in the dead-letter queue.
	MoveToDLQ bool `json:"moveToDlq"`

	// Reason is a human-readable explanation of the verdict.
	Reason string `json:"reason"`

	// NextRetryCount is the retry count the re-published message will
	// carry (only meaningful when ShouldRetry is true).
	NextRetryCount int `json:"nextRetryCount"`
}
