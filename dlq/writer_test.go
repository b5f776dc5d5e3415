package dlq_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
	"github.com/xraph/requeue/store/memory"
)

func newTestMessage() *job.Message {
	return &job.Message{
		JobID:       id.NewJobID(),
		DocumentID:  id.NewDocumentID(),
		OwnerID:     id.NewOwnerID(),
		UploadedBy:  id.NewUserID(),
		FileName:    "report.pdf",
		ContentType: "application/pdf",
		StoragePath: "/var/uploads/2026/03/report.pdf",
		SizeBytes:   204800,
		CreatedAt:   time.Now().UTC(),
		RetryCount:  3,
	}
}

func TestWriter_Write_PersistsPendingEntry(t *testing.T) {
	s := memory.New()
	w := dlq.NewWriter(s)
	ctx := context.Background()

	msg := newTestMessage()
	entryID, err := w.Write(ctx, msg, "Max retries (3) exhausted", "smtp timeout", "stack trace", `[{"attempt":1}]`)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if entry.Status != dlq.StatusPending {
		t.Errorf("Status = %q, want %q", entry.Status, dlq.StatusPending)
	}
	if entry.JobID != msg.JobID {
		t.Errorf("JobID = %v, want %v", entry.JobID, msg.JobID)
	}
	if entry.DocumentID != msg.DocumentID {
		t.Errorf("DocumentID = %v, want %v", entry.DocumentID, msg.DocumentID)
	}
	if entry.ErrorMessage != "smtp timeout" {
		t.Errorf("ErrorMessage = %q, want %q", entry.ErrorMessage, "smtp timeout")
	}
	if entry.RetryCount != 3 {
		t.Errorf("RetryCount = %d, want 3", entry.RetryCount)
	}
	if entry.SchemaVersion != job.MessageSchemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", entry.SchemaVersion, job.MessageSchemaVersion)
	}
	if entry.ReplayAttempts != 0 {
		t.Errorf("ReplayAttempts = %d, want 0", entry.ReplayAttempts)
	}
	if entry.DeadLetteredAt.IsZero() {
		t.Error("expected DeadLetteredAt to be set")
	}
}

func TestWriter_Write_RedactsStoragePath(t *testing.T) {
	s := memory.New()
	w := dlq.NewWriter(s)
	ctx := context.Background()

	msg := newTestMessage()
	entryID, err := w.Write(ctx, msg, "reason", "err", "", "")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if strings.Contains(entry.OriginalMessage, msg.StoragePath) {
		t.Errorf("serialized message leaks storage path: %s", entry.OriginalMessage)
	}
	if !strings.Contains(entry.OriginalMessage, job.RedactedStoragePath) {
		t.Errorf("serialized message missing redaction marker: %s", entry.OriginalMessage)
	}
}

func TestWriter_Write_FlipsJobRecord(t *testing.T) {
	s := memory.New()
	w := dlq.NewWriter(s)
	ctx := context.Background()

	msg := newTestMessage()
	record := &job.Record{
		ID:         msg.JobID,
		DocumentID: msg.DocumentID,
		Status:     job.StatusProcessing,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.CreateRecord(ctx, record); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	if _, err := w.Write(ctx, msg, "reason", "worker crashed", "", ""); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.GetRecord(ctx, msg.JobID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.Status != job.StatusDeadLettered {
		t.Errorf("record Status = %q, want %q", got.Status, job.StatusDeadLettered)
	}
	if got.ErrorMessage != "worker crashed" {
		t.Errorf("record ErrorMessage = %q, want %q", got.ErrorMessage, "worker crashed")
	}
}

func TestWriter_Write_MissingJobRecordStillWrites(t *testing.T) {
	s := memory.New()
	w := dlq.NewWriter(s)
	ctx := context.Background()

	entryID, err := w.Write(ctx, newTestMessage(), "reason", "err", "", "")
	if err != nil {
		t.Fatalf("Write without job record: %v", err)
	}
	if _, err := s.GetEntry(ctx, entryID); err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
}

func TestWriter_Write_TruncatesAndDefaults(t *testing.T) {
	s := memory.New()
	w := dlq.NewWriter(s)
	ctx := context.Background()

	longError := strings.Repeat("e", 5000)
	longReason := strings.Repeat("r", 300)

	entryID, err := w.Write(ctx, newTestMessage(), longReason, longError, longError, "")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if len(entry.ErrorMessage) != 4000 {
		t.Errorf("len(ErrorMessage) = %d, want 4000", len(entry.ErrorMessage))
	}
	if len(entry.ErrorDetails) != 4000 {
		t.Errorf("len(ErrorDetails) = %d, want 4000", len(entry.ErrorDetails))
	}
	if len(entry.Reason) != 200 {
		t.Errorf("len(Reason) = %d, want 200", len(entry.Reason))
	}

	defaulted, err := w.Write(ctx, newTestMessage(), "", "err", "", "")
	if err != nil {
		t.Fatalf("Write with empty reason: %v", err)
	}
	got, err := s.GetEntry(ctx, defaulted)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Reason != dlq.DefaultReason {
		t.Errorf("Reason = %q, want %q", got.Reason, dlq.DefaultReason)
	}
}
