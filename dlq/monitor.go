package dlq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// DefaultMonitorSchedule runs a health evaluation every minute.
const DefaultMonitorSchedule = "@every 1m"

// Monitor runs the health check on a cron schedule.
type Monitor struct {
	check    *HealthCheck
	schedule cronlib.Schedule
	logger   *slog.Logger

	mu     sync.Mutex
	latest *HealthResult

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewMonitor creates a Monitor firing check on the given cron
// expression (e.g. "*/5 * * * *" or "@every 30s").
func NewMonitor(check *HealthCheck, expr string, logger *slog.Logger) (*Monitor, error) {
	if expr == "" {
		expr = DefaultMonitorSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}

	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("dlq: parse monitor schedule %q: %w", expr, err)
	}

	return &Monitor{
		check:    check,
		schedule: schedule,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start launches the evaluation loop. One evaluation runs immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.wg.Add(1)
	go m.loop(ctx)
	m.logger.Info("dlq health monitor started")
	return nil
}

// Stop signals the loop to stop and waits for it to finish.
func (m *Monitor) Stop(_ context.Context) error {
	close(m.stopCh)
	m.wg.Wait()
	m.logger.Info("dlq health monitor stopped")
	return nil
}

// Latest returns the most recent evaluation, or nil before the first
// one completes.
func (m *Monitor) Latest() *HealthResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	m.evaluate(ctx)

	for {
		next := m.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-m.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			m.evaluate(ctx)
		}
	}
}

func (m *Monitor) evaluate(ctx context.Context) {
	result := m.check.Check(ctx)

	m.mu.Lock()
	m.latest = &result
	m.mu.Unlock()
}
