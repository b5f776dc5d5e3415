package retry_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
	"github.com/xraph/requeue/retry"
	"github.com/xraph/requeue/store/memory"
)

type stubPublisher struct {
	published []*job.Message
	err       error
}

func (p *stubPublisher) Publish(_ context.Context, msg *job.Message) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func (p *stubPublisher) Connected() bool { return p.err == nil }

type stubWriter struct {
	entryID id.DLQID
	writes  int
	reason  string
	err     error
}

func (w *stubWriter) Write(_ context.Context, _ *job.Message, reason, _, _, _ string) (id.DLQID, error) {
	if w.err != nil {
		return id.Nil, w.err
	}
	w.writes++
	w.reason = reason
	if w.entryID.IsNil() {
		w.entryID = id.NewDLQID()
	}
	return w.entryID, nil
}

func newFailedMessage(retryCount int) *job.Message {
	return &job.Message{
		JobID:       id.NewJobID(),
		DocumentID:  id.NewDocumentID(),
		OwnerID:     id.NewOwnerID(),
		UploadedBy:  id.NewUserID(),
		FileName:    "scan.pdf",
		ContentType: "application/pdf",
		StoragePath: "/var/uploads/scan.pdf",
		SizeBytes:   1024,
		CreatedAt:   time.Now().UTC(),
		RetryCount:  retryCount,
	}
}

func newTestHandler(pub *stubPublisher, w *stubWriter) *retry.Handler {
	cfg := retry.DefaultConfig()
	cfg.Jitter = false
	return retry.NewHandler(retry.NewPolicy(cfg), pub, w)
}

func TestHandler_EvaluateRetry_NonRetryable(t *testing.T) {
	h := newTestHandler(&stubPublisher{}, &stubWriter{})

	for _, class := range []job.Classification{job.ClassPermanent, job.ClassUnauthorized} {
		// Non-retryable wins regardless of remaining budget.
		for _, count := range []int{0, 1, 5} {
			d := h.EvaluateRetry(newFailedMessage(count), class, "denied")
			if !d.MoveToDLQ || d.ShouldRetry {
				t.Errorf("EvaluateRetry(%s, count=%d): MoveToDLQ=%v ShouldRetry=%v, want true/false",
					class, count, d.MoveToDLQ, d.ShouldRetry)
			}
			if !strings.Contains(d.Reason, "Non-retryable") {
				t.Errorf("Reason = %q, want non-retryable reason", d.Reason)
			}
		}
	}
}

func TestHandler_EvaluateRetry_Exhausted(t *testing.T) {
	h := newTestHandler(&stubPublisher{}, &stubWriter{})

	d := h.EvaluateRetry(newFailedMessage(3), job.ClassTransient, "timeout")
	if !d.MoveToDLQ || d.ShouldRetry {
		t.Errorf("MoveToDLQ=%v ShouldRetry=%v, want true/false", d.MoveToDLQ, d.ShouldRetry)
	}
	if !strings.Contains(d.Reason, "exhausted") {
		t.Errorf("Reason = %q, want reason containing %q", d.Reason, "exhausted")
	}
}

func TestHandler_EvaluateRetry_RetryPath(t *testing.T) {
	h := newTestHandler(&stubPublisher{}, &stubWriter{})

	d := h.EvaluateRetry(newFailedMessage(1), job.ClassTransient, "timeout")
	if !d.ShouldRetry || d.MoveToDLQ {
		t.Fatalf("ShouldRetry=%v MoveToDLQ=%v, want true/false", d.ShouldRetry, d.MoveToDLQ)
	}
	if d.NextRetryCount != 2 {
		t.Errorf("NextRetryCount = %d, want 2", d.NextRetryCount)
	}
	if d.Delay != 2*time.Second {
		t.Errorf("Delay = %v, want 2s", d.Delay)
	}
	if d.Reason != "Retry 2 of 3" {
		t.Errorf("Reason = %q, want %q", d.Reason, "Retry 2 of 3")
	}
}

func TestHandler_ScheduleRetry_PublishesIncrementedMessage(t *testing.T) {
	pub := &stubPublisher{}
	h := newTestHandler(pub, &stubWriter{})

	msg := newFailedMessage(0)
	if err := h.ScheduleRetry(context.Background(), msg, time.Second); err != nil {
		t.Fatalf("ScheduleRetry: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.published))
	}
	next := pub.published[0]
	if next.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", next.RetryCount)
	}
	if next.JobID != msg.JobID {
		t.Errorf("JobID changed on retry: %v -> %v", msg.JobID, next.JobID)
	}
	if msg.RetryCount != 0 {
		t.Errorf("original message mutated: RetryCount = %d", msg.RetryCount)
	}
}

func TestHandler_ScheduleRetry_PublishFailure(t *testing.T) {
	pub := &stubPublisher{err: errors.New("broker down")}
	h := newTestHandler(pub, &stubWriter{})

	if err := h.ScheduleRetry(context.Background(), newFailedMessage(0), time.Second); err == nil {
		t.Fatal("expected error when publish fails")
	}
}

func TestHandler_HandleFailure_DeadLettersOnExhaustion(t *testing.T) {
	pub := &stubPublisher{}
	w := &stubWriter{}
	h := newTestHandler(pub, w)

	d, err := h.HandleFailure(context.Background(), newFailedMessage(3), job.ClassTransient, "timeout", "", "")
	if err != nil {
		t.Fatalf("HandleFailure: %v", err)
	}
	if !d.MoveToDLQ {
		t.Error("expected MoveToDLQ decision")
	}
	if w.writes != 1 {
		t.Errorf("writer called %d times, want 1", w.writes)
	}
	if len(pub.published) != 0 {
		t.Errorf("published %d messages, want 0", len(pub.published))
	}
}

// TestHandler_EndToEnd walks a job through the whole engine: three
// transient failures, dead-lettering on exhaustion, then an operator
// replay that produces a fresh job.
func TestHandler_EndToEnd(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	pub := &stubPublisher{}

	writer := dlq.NewWriter(s)
	cfg := retry.DefaultConfig()
	cfg.Jitter = false
	h := retry.NewHandler(retry.NewPolicy(cfg), pub, writer)

	msg := newFailedMessage(0)
	var history retry.History

	// Three transient failures, each retried with doubling delay.
	wantDelays := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	current := msg
	for attempt, wantDelay := range wantDelays {
		d := h.EvaluateRetry(current, job.ClassTransient, "timeout")
		if !d.ShouldRetry {
			t.Fatalf("attempt %d: expected retry, got %q", attempt+1, d.Reason)
		}
		if d.Delay != wantDelay {
			t.Errorf("attempt %d: Delay = %v, want %v", attempt+1, d.Delay, wantDelay)
		}
		if err := h.ScheduleRetry(ctx, current, d.Delay); err != nil {
			t.Fatalf("attempt %d: ScheduleRetry: %v", attempt+1, err)
		}
		history = history.Record(attempt+1, time.Now().UTC(), "timeout")
		current = pub.published[len(pub.published)-1]
	}

	if current.RetryCount != 3 {
		t.Fatalf("RetryCount after three retries = %d, want 3", current.RetryCount)
	}

	// Fourth failure exhausts the budget.
	final := h.EvaluateRetry(current, job.ClassTransient, "timeout")
	if !final.MoveToDLQ {
		t.Fatalf("expected dead-letter decision, got %q", final.Reason)
	}
	if final.Reason != "Max retries (3) exhausted" {
		t.Errorf("Reason = %q, want %q", final.Reason, "Max retries (3) exhausted")
	}

	entryID, err := h.MoveToDLQ(ctx, current, final.Reason, "timeout", "", history.Encode())
	if err != nil {
		t.Fatalf("MoveToDLQ: %v", err)
	}

	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if entry.Status != dlq.StatusPending {
		t.Errorf("Status = %q, want %q", entry.Status, dlq.StatusPending)
	}
	if entry.RetryCount != 3 {
		t.Errorf("entry RetryCount = %d, want 3", entry.RetryCount)
	}

	decoded, err := retry.DecodeHistory(entry.RetryHistory)
	if err != nil {
		t.Fatalf("DecodeHistory: %v", err)
	}
	if len(decoded) != 3 {
		t.Errorf("history has %d attempts, want 3", len(decoded))
	}

	// Operator replays the entry.
	actions := dlq.NewActions(s, pub)
	result, err := actions.Replay(ctx, entryID, id.NewUserID())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !result.Success {
		t.Fatalf("Replay failed: %s", result.Message)
	}

	replayed := pub.published[len(pub.published)-1]
	if replayed.RetryCount != 0 {
		t.Errorf("replayed RetryCount = %d, want 0", replayed.RetryCount)
	}
	if replayed.JobID == msg.JobID {
		t.Error("replayed job must get a fresh ID")
	}

	after, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if after.Status != dlq.StatusReplayed {
		t.Errorf("Status = %q, want %q", after.Status, dlq.StatusReplayed)
	}
}
