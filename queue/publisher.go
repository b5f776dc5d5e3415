// Package queue defines the publish contract between the retry engine
// and the message broker, the codecs used on the wire, and a disabled
// publisher for deployments without a broker.
package queue

import (
	"context"
	"log/slog"

	"github.com/xraph/requeue/job"
)

// Publisher delivers a job message to the processing queue. Publishing
// is fire-and-return: implementations block only on the broker's
// acknowledgment, never on downstream consumption. Delivery is
// at-least-once; downstream idempotency is the consumer's concern.
type Publisher interface {
	// Publish delivers msg to the processing queue.
	Publish(ctx context.Context, msg *job.Message) error

	// Connected reports whether the underlying broker connection is
	// healthy. A disabled publisher reports false while still accepting
	// publishes.
	Connected() bool
}

// DisabledPublisher accepts every publish and only logs it. This is a
// legitimate deployment mode for environments without a broker, not a
// failure mode.
type DisabledPublisher struct {
	logger *slog.Logger
}

// NewDisabledPublisher creates a publisher that logs instead of queuing.
func NewDisabledPublisher(logger *slog.Logger) *DisabledPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &DisabledPublisher{logger: logger}
}

// Publish logs the job and reports success.
func (p *DisabledPublisher) Publish(_ context.Context, msg *job.Message) error {
	p.logger.Info("queue disabled, job logged but not published",
		slog.String("job_id", msg.JobID.String()),
		slog.String("document_id", msg.DocumentID.String()),
		slog.Int("retry_count", msg.RetryCount),
	)
	return nil
}

// Connected always reports false for the disabled publisher.
func (p *DisabledPublisher) Connected() bool { return false }
