package dlq_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/store/memory"
)

// failingStore wraps the memory store and fails metrics queries.
type failingStore struct {
	*memory.Store
}

func (f *failingStore) EntryMetrics(_ context.Context) (*dlq.Metrics, error) {
	return nil, errors.New("connection refused")
}

func TestHealthCheck_Healthy(t *testing.T) {
	s := memory.New()
	check := dlq.NewHealthCheck(dlq.NewReader(s))

	result := check.Check(context.Background())
	if result.Status != dlq.HealthHealthy {
		t.Errorf("Status = %q, want %q", result.Status, dlq.HealthHealthy)
	}
	if result.Error != "" {
		t.Errorf("Error = %q, want empty", result.Error)
	}
	if result.CheckedAt.IsZero() {
		t.Error("expected CheckedAt to be set")
	}
}

func TestHealthCheck_Degraded(t *testing.T) {
	s := memory.New()
	reader := dlq.NewReader(s, dlq.WithThresholds(dlq.Thresholds{
		WarningPending:  2,
		CriticalPending: 100,
		WarningAge:      dlq.DefaultThresholds().WarningAge,
		CriticalAge:     dlq.DefaultThresholds().CriticalAge,
	}))
	check := dlq.NewHealthCheck(reader)
	ctx := context.Background()

	seedEntries(t, s, 3)

	result := check.Check(ctx)
	if result.Status != dlq.HealthDegraded {
		t.Errorf("Status = %q, want %q", result.Status, dlq.HealthDegraded)
	}
	if result.PendingCount != 3 {
		t.Errorf("PendingCount = %d, want 3", result.PendingCount)
	}
}

func TestHealthCheck_QueryFailureIsUnhealthy(t *testing.T) {
	s := &failingStore{Store: memory.New()}
	check := dlq.NewHealthCheck(dlq.NewReader(s))

	result := check.Check(context.Background())
	if result.Status != dlq.HealthUnhealthy {
		t.Errorf("Status = %q, want %q", result.Status, dlq.HealthUnhealthy)
	}
	if result.Error == "" {
		t.Error("expected Error to carry the underlying failure")
	}
}

func TestMonitor_ParsesSchedule(t *testing.T) {
	s := memory.New()
	check := dlq.NewHealthCheck(dlq.NewReader(s))

	if _, err := dlq.NewMonitor(check, "*/5 * * * *", nil); err != nil {
		t.Errorf("NewMonitor cron expr: %v", err)
	}
	if _, err := dlq.NewMonitor(check, "@every 30s", nil); err != nil {
		t.Errorf("NewMonitor descriptor: %v", err)
	}
	if _, err := dlq.NewMonitor(check, "not a schedule", nil); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
