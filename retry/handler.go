package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/requeue/ext"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
	"github.com/xraph/requeue/queue"
)

// DeadLetterWriter persists a job that has exhausted its retry budget or
// failed non-retryably. Satisfied by dlq.Writer.
type DeadLetterWriter interface {
	Write(ctx context.Context, msg *job.Message, reason, errorMessage, errorDetails, retryHistory string) (id.DLQID, error)
}

// Handler orchestrates one failure event: it asks the Policy for a
// verdict and either re-publishes the job or hands it to the
// dead-letter writer.
type Handler struct {
	policy     *Policy
	publisher  queue.Publisher
	deadLetter DeadLetterWriter
	extensions *ext.Registry
	logger     *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger for the handler.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// WithHandlerExtensions sets the lifecycle extension registry.
func WithHandlerExtensions(r *ext.Registry) HandlerOption {
	return func(h *Handler) { h.extensions = r }
}

// NewHandler creates a Handler.
func NewHandler(policy *Policy, publisher queue.Publisher, deadLetter DeadLetterWriter, opts ...HandlerOption) *Handler {
	h := &Handler{
		policy:     policy,
		publisher:  publisher,
		deadLetter: deadLetter,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EvaluateRetry produces the verdict for a failed job. It is a pure
// decision — no publish or persistence happens here.
func (h *Handler) EvaluateRetry(msg *job.Message, class job.Classification, errorMessage string) Decision {
	if !h.policy.IsRetryable(class) {
		h.logger.Info("non-retryable error",
			slog.String("job_id", msg.JobID.String()),
			slog.String("classification", class.String()),
		)
		return Decision{
			MoveToDLQ: true,
			Reason:    fmt.Sprintf("Non-retryable error: %s", class),
		}
	}

	if !h.policy.ShouldRetry(msg.RetryCount) {
		h.logger.Warn("max retries exhausted",
			slog.String("job_id", msg.JobID.String()),
			slog.Int("retry_count", msg.RetryCount),
			slog.Int("max_retries", h.policy.MaxRetries()),
		)
		return Decision{
			MoveToDLQ: true,
			Reason:    fmt.Sprintf("Max retries (%d) exhausted", h.policy.MaxRetries()),
		}
	}

	delay := h.policy.NextDelay(msg.RetryCount)

	h.logger.Info("scheduling retry",
		slog.String("job_id", msg.JobID.String()),
		slog.Int("attempt", msg.RetryCount+1),
		slog.Int("max_retries", h.policy.MaxRetries()),
		slog.Duration("delay", delay),
	)

	return Decision{
		ShouldRetry:    true,
		Delay:          delay,
		Reason:         fmt.Sprintf("Retry %d of %d", msg.RetryCount+1, h.policy.MaxRetries()),
		NextRetryCount: msg.RetryCount + 1,
	}
}

// ScheduleRetry publishes the next attempt for msg. The delay is
// advisory metadata for the caller's scheduler; this method does not
// sleep. Returns the publish outcome.
func (h *Handler) ScheduleRetry(ctx context.Context, msg *job.Message, delay time.Duration) error {
	next := msg.NextRetry()

	if err := h.publisher.Publish(ctx, next); err != nil {
		return fmt.Errorf("retry: publish attempt %d for job %s: %w", next.RetryCount, next.JobID, err)
	}

	if h.extensions != nil {
		h.extensions.EmitRetryScheduled(ctx, next, next.RetryCount, delay)
	}
	return nil
}

// MoveToDLQ parks msg in the dead-letter queue with the given reason and
// error context. Returns the new entry's ID.
func (h *Handler) MoveToDLQ(ctx context.Context, msg *job.Message, reason, errorMessage, errorDetails, retryHistory string) (id.DLQID, error) {
	h.logger.Error("moving job to dead-letter queue",
		slog.String("job_id", msg.JobID.String()),
		slog.String("document_id", msg.DocumentID.String()),
		slog.String("reason", reason),
	)

	return h.deadLetter.Write(ctx, msg, reason, errorMessage, errorDetails, retryHistory)
}

// HandleFailure runs the full failure flow for one event: evaluate, then
// either schedule the retry or dead-letter the job. The returned
// Decision reports which path was taken.
func (h *Handler) HandleFailure(ctx context.Context, msg *job.Message, class job.Classification, errorMessage, errorDetails, retryHistory string) (Decision, error) {
	decision := h.EvaluateRetry(msg, class, errorMessage)

	if decision.ShouldRetry {
		if err := h.ScheduleRetry(ctx, msg, decision.Delay); err != nil {
			return decision, err
		}
		return decision, nil
	}

	if _, err := h.MoveToDLQ(ctx, msg, decision.Reason, errorMessage, errorDetails, retryHistory); err != nil {
		return decision, err
	}
	return decision, nil
}
