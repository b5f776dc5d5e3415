// Package job defines the document-processing job message that travels
// over the queue, the error classifications that drive retry routing,
// and the durable job status record.
package job

import (
	"time"

	"github.com/xraph/requeue/id"
)

// RedactedStoragePath is the marker substituted for the real storage
// path whenever a message is serialized into a durable audit trail.
// Raw file-system paths must never be persisted outside the job record.
const RedactedStoragePath = "[REDACTED]"

// MessageSchemaVersion tags serialized messages so stored copies remain
// interpretable across schema changes.
const MessageSchemaVersion = "1.0"

// Message is a document-processing job as it travels over the queue.
//
// Message is an immutable value: a retry or replay never mutates an
// existing message, it derives a new one via NextRetry or Replay.
type Message struct {
	JobID         id.JobID      `json:"jobId"`
	DocumentID    id.DocumentID `json:"documentId"`
	OwnerID       id.OwnerID    `json:"ownerId"`
	UploadedBy    id.UserID     `json:"uploadedByUserId"`
	FileName      string        `json:"fileName"`
	ContentType   string        `json:"contentType"`
	StoragePath   string        `json:"storagePath"`
	SizeBytes     int64         `json:"sizeBytes"`
	CreatedAt     time.Time     `json:"createdAt"`
	RetryCount    int           `json:"retryCount"`
	CorrelationID string        `json:"correlationId,omitempty"`
}

// NextRetry derives the message for the next retry attempt: same job,
// retry count incremented, refreshed creation timestamp.
func (m *Message) NextRetry() *Message {
	next := *m
	next.RetryCount = m.RetryCount + 1
	next.CreatedAt = time.Now().UTC()
	return &next
}

// Replay derives a fresh message from a dead-lettered one: new job ID,
// retry count reset to zero, refreshed creation timestamp, and a
// correlation ID tying the new job back to the dead-letter entry.
func (m *Message) Replay(entryID id.DLQID) *Message {
	replay := *m
	replay.JobID = id.NewJobID()
	replay.RetryCount = 0
	replay.CreatedAt = time.Now().UTC()
	replay.CorrelationID = "replay:" + entryID.String()
	return &replay
}

// Redacted returns a copy safe for durable serialization: the storage
// path is replaced with the redaction marker.
func (m *Message) Redacted() *Message {
	safe := *m
	safe.StoragePath = RedactedStoragePath
	return &safe
}
