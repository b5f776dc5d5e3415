package extension

import (
	"log/slog"

	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/ext"
	"github.com/xraph/requeue/queue"
	"github.com/xraph/requeue/store"
)

// ExtOption configures the requeue Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.backend = s
	}
}

// WithPublisher sets the queue publisher used for replays. When unset,
// replays fail with a publish error and entries stay pending.
func WithPublisher(p queue.Publisher) ExtOption {
	return func(e *Extension) {
		e.publisher = p
	}
}

// WithHook registers a lifecycle hook extension.
func WithHook(h ext.Extension) ExtOption {
	return func(e *Extension) {
		e.hooks = append(e.hooks, h)
	}
}

// WithThresholds overrides the DLQ health thresholds.
func WithThresholds(t dlq.Thresholds) ExtOption {
	return func(e *Extension) {
		e.config.Thresholds = t
	}
}

// WithMonitorSchedule sets the cron expression for the background
// health check.
func WithMonitorSchedule(expr string) ExtOption {
	return func(e *Extension) {
		e.config.MonitorSchedule = expr
	}
}

// WithConfig sets the extension configuration directly.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}

// WithDisableMonitor disables the scheduled background health check.
func WithDisableMonitor() ExtOption {
	return func(e *Extension) {
		e.config.DisableMonitor = true
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) ExtOption {
	return func(e *Extension) {
		e.config.RequireConfig = require
	}
}

// WithLogger sets the structured logger for all requeue components.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}
