package dlq

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/requeue/ext"
)

// HealthResult is one health evaluation of the dead letter queue.
type HealthResult struct {
	Status           Health         `json:"status"`
	PendingCount     int64          `json:"pendingCount"`
	OldestPendingAge *time.Duration `json:"oldestPendingAge,omitempty"`
	Error            string         `json:"error,omitempty"`
	CheckedAt        time.Time      `json:"checkedAt"`
}

// HealthCheck evaluates DLQ depth and pending age against thresholds.
// A store failure reports Unhealthy with the underlying error, never a
// silent pass.
type HealthCheck struct {
	reader     *Reader
	extensions *ext.Registry
	logger     *slog.Logger
}

// HealthCheckOption configures a HealthCheck.
type HealthCheckOption func(*HealthCheck)

// WithHealthLogger sets the logger.
func WithHealthLogger(logger *slog.Logger) HealthCheckOption {
	return func(h *HealthCheck) { h.logger = logger }
}

// WithHealthExtensions sets the extension registry notified after each
// evaluation.
func WithHealthExtensions(reg *ext.Registry) HealthCheckOption {
	return func(h *HealthCheck) { h.extensions = reg }
}

// NewHealthCheck creates a HealthCheck over reader.
func NewHealthCheck(reader *Reader, opts ...HealthCheckOption) *HealthCheck {
	h := &HealthCheck{
		reader: reader,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.extensions == nil {
		h.extensions = ext.NewRegistry(h.logger)
	}
	return h
}

// Check runs one evaluation.
func (h *HealthCheck) Check(ctx context.Context) HealthResult {
	now := time.Now().UTC()

	metrics, err := h.reader.Metrics(ctx)
	if err != nil {
		h.logger.Error("dlq health check failed",
			slog.String("error", err.Error()),
		)
		return HealthResult{
			Status:    HealthUnhealthy,
			Error:     err.Error(),
			CheckedAt: now,
		}
	}

	result := HealthResult{
		Status:           metrics.HealthStatus,
		PendingCount:     metrics.PendingCount,
		OldestPendingAge: metrics.OldestPendingAge,
		CheckedAt:        now,
	}

	age := time.Duration(0)
	if result.OldestPendingAge != nil {
		age = *result.OldestPendingAge
	}

	switch result.Status {
	case HealthHealthy:
		h.logger.Debug("dlq healthy",
			slog.Int64("pending", result.PendingCount),
		)
	case HealthDegraded:
		h.logger.Warn("dlq degraded",
			slog.Int64("pending", result.PendingCount),
			slog.Duration("oldest_pending_age", age),
		)
	case HealthUnhealthy:
		h.logger.Error("dlq unhealthy",
			slog.Int64("pending", result.PendingCount),
			slog.Duration("oldest_pending_age", age),
		)
	}

	h.extensions.EmitHealthEvaluated(ctx, string(result.Status), int(result.PendingCount), age)

	return result
}
