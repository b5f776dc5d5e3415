package observability_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/requeue/ext"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
	"github.com/xraph/requeue/observability"
)

func newTestExtension() *observability.MetricsExtension {
	return observability.NewMetricsExtensionWithFactory(gu.NewMetricsCollector("test"))
}

func newTestMessage() *job.Message {
	return &job.Message{
		JobID:      id.NewJobID(),
		DocumentID: id.NewDocumentID(),
	}
}

func TestMetricsExtension_Name(t *testing.T) {
	e := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_RetryScheduled(t *testing.T) {
	e := newTestExtension()
	if err := e.OnRetryScheduled(context.Background(), newTestMessage(), 1, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.RetryScheduled.Value() != 1 {
		t.Errorf("RetryScheduled: want 1, got %v", e.RetryScheduled.Value())
	}
}

func TestMetricsExtension_JobDeadLettered(t *testing.T) {
	e := newTestExtension()
	if err := e.OnJobDeadLettered(context.Background(), id.NewDLQID(), newTestMessage(), "exhausted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.JobDeadLettered.Value() != 1 {
		t.Errorf("JobDeadLettered: want 1, got %v", e.JobDeadLettered.Value())
	}
}

func TestMetricsExtension_EntryReplayed(t *testing.T) {
	e := newTestExtension()
	if err := e.OnEntryReplayed(context.Background(), id.NewDLQID(), id.NewJobID(), id.NewUserID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.EntryReplayed.Value() != 1 {
		t.Errorf("EntryReplayed: want 1, got %v", e.EntryReplayed.Value())
	}
}

func TestMetricsExtension_EntryDiscarded(t *testing.T) {
	e := newTestExtension()
	if err := e.OnEntryDiscarded(context.Background(), id.NewDLQID(), id.NewUserID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.EntryDiscarded.Value() != 1 {
		t.Errorf("EntryDiscarded: want 1, got %v", e.EntryDiscarded.Value())
	}
}

func TestMetricsExtension_HealthEvaluated(t *testing.T) {
	e := newTestExtension()
	ctx := context.Background()

	if err := e.OnHealthEvaluated(ctx, "Healthy", 1, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.OnHealthEvaluated(ctx, "Degraded", 150, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.OnHealthEvaluated(ctx, "Unhealthy", 600, 25*time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.HealthDegraded.Value() != 1 {
		t.Errorf("HealthDegraded: want 1, got %v", e.HealthDegraded.Value())
	}
	if e.HealthUnhealthy.Value() != 1 {
		t.Errorf("HealthUnhealthy: want 1, got %v", e.HealthUnhealthy.Value())
	}
}

func TestMetricsExtension_ViaRegistry(t *testing.T) {
	e := newTestExtension()
	logger := slog.Default()

	reg := ext.NewRegistry(logger)
	reg.Register(e)

	ctx := context.Background()
	msg := newTestMessage()

	reg.EmitRetryScheduled(ctx, msg, 1, time.Second)
	reg.EmitJobDeadLettered(ctx, id.NewDLQID(), msg, "exhausted")
	reg.EmitEntryReplayed(ctx, id.NewDLQID(), id.NewJobID(), id.NewUserID())
	reg.EmitEntryDiscarded(ctx, id.NewDLQID(), id.NewUserID())
	reg.EmitHealthEvaluated(ctx, "Degraded", 150, time.Hour)

	checks := []struct {
		name  string
		value float64
	}{
		{"RetryScheduled", e.RetryScheduled.Value()},
		{"JobDeadLettered", e.JobDeadLettered.Value()},
		{"EntryReplayed", e.EntryReplayed.Value()},
		{"EntryDiscarded", e.EntryDiscarded.Value()},
		{"HealthDegraded", e.HealthDegraded.Value()},
	}

	for _, c := range checks {
		if c.value != 1 {
			t.Errorf("%s: want 1, got %v", c.name, c.value)
		}
	}
}
