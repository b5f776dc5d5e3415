package observability

import (
	"context"
	"time"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/requeue/ext"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension       = (*MetricsExtension)(nil)
	_ ext.RetryScheduled  = (*MetricsExtension)(nil)
	_ ext.JobDeadLettered = (*MetricsExtension)(nil)
	_ ext.EntryReplayed   = (*MetricsExtension)(nil)
	_ ext.EntryDiscarded  = (*MetricsExtension)(nil)
	_ ext.HealthEvaluated = (*MetricsExtension)(nil)
)

// MetricsExtension records engine-wide lifecycle metrics via go-utils
// MetricFactory. Register it as a requeue extension to automatically
// track retry rates, dead-letter counts, operator replays and discards,
// and degraded health evaluations.
type MetricsExtension struct {
	RetryScheduled  gu.Counter
	JobDeadLettered gu.Counter
	EntryReplayed   gu.Counter
	EntryDiscarded  gu.Counter
	HealthDegraded  gu.Counter
	HealthUnhealthy gu.Counter
}

// NewMetricsExtension creates a MetricsExtension using a default metrics collector.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithFactory(gu.NewMetricsCollector("requeue/observability"))
}

// NewMetricsExtensionWithFactory creates a MetricsExtension with the
// provided MetricFactory. Use fapp.Metrics() in forge extensions, or
// gu.NewMetricsCollector for testing.
func NewMetricsExtensionWithFactory(factory gu.MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		RetryScheduled:  factory.Counter("requeue.retry.scheduled"),
		JobDeadLettered: factory.Counter("requeue.job.dead_lettered"),
		EntryReplayed:   factory.Counter("requeue.dlq.replayed"),
		EntryDiscarded:  factory.Counter("requeue.dlq.discarded"),
		HealthDegraded:  factory.Counter("requeue.dlq.health.degraded"),
		HealthUnhealthy: factory.Counter("requeue.dlq.health.unhealthy"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnRetryScheduled implements ext.RetryScheduled.
func (m *MetricsExtension) OnRetryScheduled(_ context.Context, _ *job.Message, _ int, _ time.Duration) error {
	m.RetryScheduled.Inc()
	return nil
}

// OnJobDeadLettered implements ext.JobDeadLettered.
func (m *MetricsExtension) OnJobDeadLettered(_ context.Context, _ id.DLQID, _ *job.Message, _ string) error {
	m.JobDeadLettered.Inc()
	return nil
}

// OnEntryReplayed implements ext.EntryReplayed.
func (m *MetricsExtension) OnEntryReplayed(_ context.Context, _ id.DLQID, _ id.JobID, _ id.UserID) error {
	m.EntryReplayed.Inc()
	return nil
}

// OnEntryDiscarded implements ext.EntryDiscarded.
func (m *MetricsExtension) OnEntryDiscarded(_ context.Context, _ id.DLQID, _ id.UserID) error {
	m.EntryDiscarded.Inc()
	return nil
}

// OnHealthEvaluated implements ext.HealthEvaluated.
func (m *MetricsExtension) OnHealthEvaluated(_ context.Context, status string, _ int, _ time.Duration) error {
	switch status {
	case "Degraded":
		m.HealthDegraded.Inc()
	case "Unhealthy":
		m.HealthUnhealthy.Inc()
	}
	return nil
}
