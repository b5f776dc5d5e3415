package dlq_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
	"github.com/xraph/requeue/store/memory"
)

// recordingPublisher captures published messages.
type recordingPublisher struct {
	published []*job.Message
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *job.Message) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func (p *recordingPublisher) Connected() bool { return p.err == nil }

// seedEntry dead-letters a fresh message and returns its entry ID.
func seedEntry(t *testing.T, s *memory.Store) id.DLQID {
	t.Helper()
	w := dlq.NewWriter(s)
	entryID, err := w.Write(context.Background(), newTestMessage(), "Max retries (3) exhausted", "boom", "", "")
	if err != nil {
		t.Fatalf("seed Write: %v", err)
	}
	return entryID
}

func TestActions_Replay_PublishesFreshMessage(t *testing.T) {
	s := memory.New()
	pub := &recordingPublisher{}
	actions := dlq.NewActions(s, pub)
	ctx := context.Background()
	operator := id.NewUserID()

	entryID := seedEntry(t, s)

	result, err := actions.Replay(ctx, entryID, operator)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !result.Success {
		t.Fatalf("Replay failed: %s", result.Message)
	}
	if result.NewJobID == nil {
		t.Fatal("expected NewJobID to be set")
	}
	if result.Status != dlq.StatusReplayed {
		t.Errorf("Status = %q, want %q", result.Status, dlq.StatusReplayed)
	}
	if result.ReplayAttempts != 1 {
		t.Errorf("ReplayAttempts = %d, want 1", result.ReplayAttempts)
	}

	if len(pub.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.published))
	}
	msg := pub.published[0]
	if msg.RetryCount != 0 {
		t.Errorf("replayed RetryCount = %d, want 0", msg.RetryCount)
	}
	if msg.JobID != *result.NewJobID {
		t.Errorf("published JobID = %v, result NewJobID = %v", msg.JobID, *result.NewJobID)
	}
	wantCorrelation := "replay:" + entryID.String()
	if msg.CorrelationID != wantCorrelation {
		t.Errorf("CorrelationID = %q, want %q", msg.CorrelationID, wantCorrelation)
	}

	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if entry.Status != dlq.StatusReplayed {
		t.Errorf("stored Status = %q, want %q", entry.Status, dlq.StatusReplayed)
	}
	if entry.ReplayedJobID != msg.JobID {
		t.Errorf("stored ReplayedJobID = %v, want %v", entry.ReplayedJobID, msg.JobID)
	}
	if entry.LastActionBy != operator {
		t.Errorf("LastActionBy = %v, want %v", entry.LastActionBy, operator)
	}
	if entry.LastActionAt == nil {
		t.Error("expected LastActionAt to be set")
	}
}

func TestActions_Replay_Idempotent(t *testing.T) {
	s := memory.New()
	pub := &recordingPublisher{}
	actions := dlq.NewActions(s, pub)
	ctx := context.Background()
	operator := id.NewUserID()

	entryID := seedEntry(t, s)

	first, err := actions.Replay(ctx, entryID, operator)
	if err != nil {
		t.Fatalf("first Replay: %v", err)
	}
	second, err := actions.Replay(ctx, entryID, operator)
	if err != nil {
		t.Fatalf("second Replay: %v", err)
	}

	if !second.Success {
		t.Fatalf("second Replay failed: %s", second.Message)
	}
	if second.NewJobID == nil || *second.NewJobID != *first.NewJobID {
		t.Errorf("second NewJobID = %v, want %v", second.NewJobID, first.NewJobID)
	}
	if second.ReplayAttempts != first.ReplayAttempts {
		t.Errorf("second ReplayAttempts = %d, want %d", second.ReplayAttempts, first.ReplayAttempts)
	}
	if len(pub.published) != 1 {
		t.Errorf("published %d messages, want 1 (no duplicate publish)", len(pub.published))
	}
}

func TestActions_Replay_DiscardedRejected(t *testing.T) {
	s := memory.New()
	pub := &recordingPublisher{}
	actions := dlq.NewActions(s, pub)
	ctx := context.Background()
	operator := id.NewUserID()

	entryID := seedEntry(t, s)
	if _, err := actions.Discard(ctx, entryID, operator); err != nil {
		t.Fatalf("Discard: %v", err)
	}

	result, err := actions.Replay(ctx, entryID, operator)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if result.Success {
		t.Fatal("replaying a discarded entry must not succeed")
	}
	if len(pub.published) != 0 {
		t.Errorf("published %d messages, want 0", len(pub.published))
	}
}

func TestActions_Replay_NotFound(t *testing.T) {
	s := memory.New()
	actions := dlq.NewActions(s, &recordingPublisher{})

	result, err := actions.Replay(context.Background(), id.NewDLQID(), id.NewUserID())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if result.Success {
		t.Error("expected failure for unknown entry")
	}
}

func TestActions_Replay_PublishFailureStaysPending(t *testing.T) {
	s := memory.New()
	pub := &recordingPublisher{err: errors.New("broker down")}
	actions := dlq.NewActions(s, pub)
	ctx := context.Background()
	operator := id.NewUserID()

	entryID := seedEntry(t, s)

	result, err := actions.Replay(ctx, entryID, operator)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure when publish fails")
	}

	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if entry.Status != dlq.StatusPending {
		t.Errorf("Status = %q, want %q", entry.Status, dlq.StatusPending)
	}
	if entry.ReplayAttempts != 1 {
		t.Errorf("ReplayAttempts = %d, want 1", entry.ReplayAttempts)
	}
	if entry.LastReplayError == "" {
		t.Error("expected LastReplayError to record the publish failure")
	}

	// The operator retries once the broker is back.
	pub.err = nil
	retry, err := actions.Replay(ctx, entryID, operator)
	if err != nil {
		t.Fatalf("retry Replay: %v", err)
	}
	if !retry.Success {
		t.Fatalf("retry Replay failed: %s", retry.Message)
	}
	if retry.ReplayAttempts != 2 {
		t.Errorf("ReplayAttempts = %d, want 2", retry.ReplayAttempts)
	}

	final, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if final.LastReplayError != "" {
		t.Errorf("LastReplayError = %q, want cleared", final.LastReplayError)
	}
}

func TestActions_Replay_BadStoredMessageRecorded(t *testing.T) {
	s := memory.New()
	actions := dlq.NewActions(s, &recordingPublisher{})
	ctx := context.Background()

	entryID := seedEntry(t, s)

	// Corrupt the stored message.
	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	entry.OriginalMessage = "{not json"
	if err := s.UpdateEntry(ctx, entry); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}

	result, err := actions.Replay(ctx, entryID, id.NewUserID())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure for corrupt stored message")
	}

	got, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.ReplayAttempts != 1 {
		t.Errorf("ReplayAttempts = %d, want 1", got.ReplayAttempts)
	}
	if got.LastReplayError == "" {
		t.Error("expected LastReplayError to record the deserialize failure")
	}
	if got.Status != dlq.StatusPending {
		t.Errorf("Status = %q, want %q", got.Status, dlq.StatusPending)
	}
}

func TestActions_Discard(t *testing.T) {
	s := memory.New()
	actions := dlq.NewActions(s, &recordingPublisher{})
	ctx := context.Background()
	operator := id.NewUserID()

	entryID := seedEntry(t, s)

	result, err := actions.Discard(ctx, entryID, operator)
	if err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if !result.Success {
		t.Fatalf("Discard failed: %s", result.Message)
	}
	if result.Status != dlq.StatusDiscarded {
		t.Errorf("Status = %q, want %q", result.Status, dlq.StatusDiscarded)
	}

	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if entry.LastActionBy != operator {
		t.Errorf("LastActionBy = %v, want %v", entry.LastActionBy, operator)
	}
	firstActionAt := entry.LastActionAt

	// Idempotent second discard.
	again, err := actions.Discard(ctx, entryID, operator)
	if err != nil {
		t.Fatalf("second Discard: %v", err)
	}
	if !again.Success {
		t.Fatalf("second Discard failed: %s", again.Message)
	}

	unchanged, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if !unchanged.LastActionAt.Equal(*firstActionAt) {
		t.Errorf("LastActionAt changed on idempotent discard: %v -> %v", firstActionAt, unchanged.LastActionAt)
	}
}

func TestActions_Discard_ReplayedRejected(t *testing.T) {
	s := memory.New()
	actions := dlq.NewActions(s, &recordingPublisher{})
	ctx := context.Background()
	operator := id.NewUserID()

	entryID := seedEntry(t, s)
	if _, err := actions.Replay(ctx, entryID, operator); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	result, err := actions.Discard(ctx, entryID, operator)
	if err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if result.Success {
		t.Fatal("discarding a replayed entry must not succeed")
	}

	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if entry.Status != dlq.StatusReplayed {
		t.Errorf("Status = %q, want %q", entry.Status, dlq.StatusReplayed)
	}
}

func TestActions_Discard_NotFound(t *testing.T) {
	s := memory.New()
	actions := dlq.NewActions(s, &recordingPublisher{})

	result, err := actions.Discard(context.Background(), id.NewDLQID(), id.NewUserID())
	if err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if result.Success {
		t.Error("expected failure for unknown entry")
	}
}
