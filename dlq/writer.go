package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/requeue/ext"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
)

// Field limits applied before durable serialization. Oversized error
// text is truncated rather than rejected so the entry is never lost.
const (
	maxErrorLen  = 4000
	maxReasonLen = 200
)

// DefaultReason is recorded when the caller supplies no dead-letter reason.
const DefaultReason = "Unknown"

// Writer persists dead letter entries. Writing an entry and flipping
// the originating job record happen in one store transaction.
type Writer struct {
	store      Store
	extensions *ext.Registry
	logger     *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the logger.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) { w.logger = logger }
}

// WithWriterExtensions sets the extension registry notified after a
// successful write.
func WithWriterExtensions(reg *ext.Registry) WriterOption {
	return func(w *Writer) { w.extensions = reg }
}

// NewWriter creates a Writer backed by store.
func NewWriter(store Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.extensions == nil {
		w.extensions = ext.NewRegistry(w.logger)
	}
	return w
}

// Write builds a Pending entry from the failed job message and persists
// it. The message is serialized with its storage path redacted. Returns
// the new entry's ID.
func (w *Writer) Write(ctx context.Context, msg *job.Message, reason, errorMessage, errorDetails, retryHistory string) (id.DLQID, error) {
	if reason == "" {
		reason = DefaultReason
	}

	serialized, err := json.Marshal(msg.Redacted())
	if err != nil {
		return id.Nil, fmt.Errorf("dlq: serialize job %s: %w", msg.JobID, err)
	}

	entry := &Entry{
		ID:              id.NewDLQID(),
		JobID:           msg.JobID,
		DocumentID:      msg.DocumentID,
		OriginalMessage: string(serialized),
		SchemaVersion:   job.MessageSchemaVersion,
		ErrorMessage:    truncate(errorMessage, maxErrorLen),
		ErrorDetails:    truncate(errorDetails, maxErrorLen),
		RetryHistory:    retryHistory,
		RetryCount:      msg.RetryCount,
		Reason:          truncate(reason, maxReasonLen),
		DeadLetteredAt:  time.Now().UTC(),
		Status:          StatusPending,
	}

	if err := w.store.WriteEntry(ctx, entry); err != nil {
		return id.Nil, fmt.Errorf("dlq: write entry for job %s: %w", msg.JobID, err)
	}

	w.logger.Warn("job dead-lettered",
		slog.String("entry_id", entry.ID.String()),
		slog.String("job_id", msg.JobID.String()),
		slog.String("document_id", msg.DocumentID.String()),
		slog.String("reason", entry.Reason),
		slog.Int("retry_count", msg.RetryCount),
	)

	w.extensions.EmitJobDeadLettered(ctx, entry.ID, msg, entry.Reason)

	return entry.ID, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
