package extension

import "github.com/xraph/requeue/dlq"

// Config holds configuration for the requeue Forge extension.
type Config struct {
	// DisableRoutes disables the registration of HTTP routes.
	// Useful when embedding requeue for background processing only.
	DisableRoutes bool `default:"false" json:"disable_routes"`

	// DisableMigrate disables auto-migration on start.
	DisableMigrate bool `default:"false" json:"disable_migrate"`

	// DisableMonitor disables the scheduled background health check.
	DisableMonitor bool `default:"false" json:"disable_monitor"`

	// MonitorSchedule is the cron expression for the background health
	// check. Supports standard 5-field expressions and @every syntax.
	MonitorSchedule string `default:"@every 1m" json:"monitor_schedule"`

	// RequireConfig requires config to be present in YAML files.
	RequireConfig bool `default:"false" json:"require_config"`

	// Thresholds overrides the DLQ health thresholds. Zero values fall
	// back to the defaults.
	Thresholds dlq.Thresholds `json:"thresholds"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() Config {
	return Config{
		MonitorSchedule: dlq.DefaultMonitorSchedule,
		Thresholds:      dlq.DefaultThresholds(),
	}
}
