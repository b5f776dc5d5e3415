// Package extension provides the Forge extension adapter for requeue.
//
// It implements the forge.Extension interface so the dead letter queue
// API, health monitor, and retry plumbing can be mounted into a Forge
// application with route registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.requeue" or
// "requeue" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/requeue/api"
	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/ext"
	"github.com/xraph/requeue/queue"
	"github.com/xraph/requeue/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "requeue"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Retry and dead letter queue engine for asynchronous document processing jobs"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts requeue as a Forge extension. It wires the store,
// publisher, and DLQ components together and mounts the operator API.
type Extension struct {
	*forge.BaseExtension

	config    Config
	backend   store.Store
	publisher queue.Publisher
	hooks     []ext.Extension
	logger    *slog.Logger

	registry   *ext.Registry
	writer     *dlq.Writer
	reader     *dlq.Reader
	actions    *dlq.Actions
	health     *dlq.HealthCheck
	monitor    *dlq.Monitor
	apiHandler *api.API
}

// New creates a requeue Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the configured persistence backend.
func (e *Extension) Store() store.Store { return e.backend }

// Writer returns the dead letter writer. Nil until Register is called.
func (e *Extension) Writer() *dlq.Writer { return e.writer }

// Reader returns the DLQ reader. Nil until Register is called.
func (e *Extension) Reader() *dlq.Reader { return e.reader }

// Actions returns the DLQ operator actions. Nil until Register is called.
func (e *Extension) Actions() *dlq.Actions { return e.actions }

// Monitor returns the background health monitor, or nil when disabled.
func (e *Extension) Monitor() *dlq.Monitor { return e.monitor }

// Extensions returns the lifecycle hook registry.
func (e *Extension) Extensions() *ext.Registry { return e.registry }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It builds the DLQ components
// and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	return e.init(fapp)
}

// init builds the DLQ components from the configured store and publisher.
func (e *Extension) init(fapp forge.App) error {
	if e.backend == nil {
		return errors.New("requeue: no store configured, use WithStore")
	}

	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	if e.publisher == nil {
		e.publisher = queue.NewDisabledPublisher(logger)
	}

	e.registry = ext.NewRegistry(logger)
	for _, h := range e.hooks {
		e.registry.Register(h)
	}

	e.writer = dlq.NewWriter(e.backend,
		dlq.WithWriterLogger(logger),
		dlq.WithWriterExtensions(e.registry),
	)

	readerOpts := []dlq.ReaderOption{dlq.WithReaderLogger(logger)}
	if e.config.Thresholds != (dlq.Thresholds{}) {
		readerOpts = append(readerOpts, dlq.WithThresholds(e.config.Thresholds))
	}
	e.reader = dlq.NewReader(e.backend, readerOpts...)

	e.actions = dlq.NewActions(e.backend, e.publisher,
		dlq.WithActionsLogger(logger),
		dlq.WithActionsExtensions(e.registry),
	)

	e.health = dlq.NewHealthCheck(e.reader,
		dlq.WithHealthLogger(logger),
		dlq.WithHealthExtensions(e.registry),
	)

	if !e.config.DisableMonitor {
		schedule := e.config.MonitorSchedule
		if schedule == "" {
			schedule = dlq.DefaultMonitorSchedule
		}
		monitor, err := dlq.NewMonitor(e.health, schedule, logger)
		if err != nil {
			return fmt.Errorf("requeue: invalid monitor schedule: %w", err)
		}
		e.monitor = monitor
	}

	e.apiHandler = api.New(e.reader, e.actions, e.health, e.backend, fapp.Router())

	if !e.config.DisableRoutes {
		e.apiHandler.RegisterRoutes(fapp.Router())
	}

	return nil
}

// Start runs auto-migration if enabled and begins health monitoring.
func (e *Extension) Start(ctx context.Context) error {
	if e.backend == nil {
		return errors.New("requeue: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.backend.Migrate(ctx); err != nil {
			return fmt.Errorf("requeue: migration failed: %w", err)
		}
	}

	if e.monitor != nil {
		if err := e.monitor.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop gracefully shuts down the monitor and notifies hooks.
func (e *Extension) Stop(ctx context.Context) error {
	if e.monitor != nil {
		if err := e.monitor.Stop(ctx); err != nil {
			return err
		}
	}
	if e.registry != nil {
		e.registry.EmitShutdown(ctx)
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.backend == nil {
		return errors.New("requeue: extension not initialized")
	}
	return e.backend.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
// Convenience for standalone use outside Forge.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all requeue API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) {
	if e.apiHandler != nil {
		e.apiHandler.RegisterRoutes(router)
	}
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("requeue: configuration is required but not found in config files; " +
				"ensure 'extensions.requeue' or 'requeue' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("requeue: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("disable_monitor", e.config.DisableMonitor),
		forge.F("monitor_schedule", e.config.MonitorSchedule),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.requeue" first (namespaced pattern).
	if cm.IsSet("extensions.requeue") {
		if err := cm.Bind("extensions.requeue", &cfg); err == nil {
			e.Logger().Debug("requeue: loaded config from file",
				forge.F("key", "extensions.requeue"),
			)
			return cfg, true
		}
		e.Logger().Warn("requeue: failed to bind extensions.requeue config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "requeue" key.
	if cm.IsSet("requeue") {
		if err := cm.Bind("requeue", &cfg); err == nil {
			e.Logger().Debug("requeue: loaded config from file",
				forge.F("key", "requeue"),
			)
			return cfg, true
		}
		e.Logger().Warn("requeue: failed to bind requeue config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.MonitorSchedule == "" {
		cfg.MonitorSchedule = defaults.MonitorSchedule
	}
	if cfg.Thresholds == (dlq.Thresholds{}) {
		cfg.Thresholds = defaults.Thresholds
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableMonitor {
		yamlConfig.DisableMonitor = true
	}

	// String and struct fields: YAML takes precedence.
	if yamlConfig.MonitorSchedule == "" && programmaticConfig.MonitorSchedule != "" {
		yamlConfig.MonitorSchedule = programmaticConfig.MonitorSchedule
	}
	if yamlConfig.Thresholds == (dlq.Thresholds{}) && programmaticConfig.Thresholds != (dlq.Thresholds{}) {
		yamlConfig.Thresholds = programmaticConfig.Thresholds
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
