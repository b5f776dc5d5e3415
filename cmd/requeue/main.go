// Command requeue serves the dead letter queue operator API and runs
// the periodic health monitor against a configured store backend.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/requeue/api"
	audithook "github.com/xraph/requeue/audit_hook"
	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/ext"
	"github.com/xraph/requeue/observability"
	"github.com/xraph/requeue/queue"
	"github.com/xraph/requeue/queue/amqp"
	"github.com/xraph/requeue/queue/redisq"
	"github.com/xraph/requeue/store"
	bunstore "github.com/xraph/requeue/store/bun"
	"github.com/xraph/requeue/store/memory"
	"github.com/xraph/requeue/store/postgres"
)

func main() {
	addr := flag.String("addr", envOr("REQUEUE_ADDR", ":8080"), "HTTP listen address")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine; environment variables still apply.
		slog.Debug("no .env file found")
	}

	level := slog.LevelInfo
	if *isDebug || os.Getenv("REQUEUE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	if err := run(*addr, logger); err != nil {
		logger.Error("requeue exited", "error", err)
		os.Exit(1)
	}
}

func run(addr string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	if os.Getenv("REQUEUE_SKIP_MIGRATE") == "" {
		if err := backend.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	publisher, err := openPublisher(ctx, logger)
	if err != nil {
		return err
	}
	defer closePublisher(publisher, logger)

	registry := ext.NewRegistry(logger)
	registry.Register(observability.NewMetricsExtension())
	registry.Register(audithook.New(slogRecorder(logger)))

	reader := dlq.NewReader(backend,
		dlq.WithReaderLogger(logger),
		dlq.WithThresholds(dlq.DefaultThresholds()),
	)
	actions := dlq.NewActions(backend, publisher,
		dlq.WithActionsLogger(logger),
		dlq.WithActionsExtensions(registry),
	)
	check := dlq.NewHealthCheck(reader,
		dlq.WithHealthLogger(logger),
		dlq.WithHealthExtensions(registry),
	)

	monitor, err := dlq.NewMonitor(check, envOr("REQUEUE_MONITOR_SCHEDULE", dlq.DefaultMonitorSchedule), logger)
	if err != nil {
		return err
	}

	handler := api.New(reader, actions, check, backend, nil)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := monitor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return monitor.Stop(context.Background())
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		registry.EmitShutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("requeue stopped gracefully")
	return nil
}

// openStore selects the store backend from REQUEUE_STORE.
func openStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	switch backend := envOr("REQUEUE_STORE", "memory"); backend {
	case "memory":
		logger.Warn("using in-memory store, data will not survive restarts")
		return memory.New(), nil

	case "postgres":
		dsn := os.Getenv("REQUEUE_POSTGRES_DSN")
		if dsn == "" {
			return nil, errors.New("REQUEUE_POSTGRES_DSN is not set")
		}
		return postgres.New(ctx, dsn, postgres.WithLogger(logger))

	case "bun":
		dsn := os.Getenv("REQUEUE_POSTGRES_DSN")
		if dsn == "" {
			return nil, errors.New("REQUEUE_POSTGRES_DSN is not set")
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db := bun.NewDB(sqldb, pgdialect.New())
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("bun: ping: %w", err)
		}
		return bunstore.New(db, bunstore.WithLogger(logger)), nil

	default:
		return nil, fmt.Errorf("unknown REQUEUE_STORE %q", backend)
	}
}

// openPublisher selects the queue publisher from REQUEUE_QUEUE.
func openPublisher(ctx context.Context, logger *slog.Logger) (queue.Publisher, error) {
	codec := queue.GetCodec(envOr("REQUEUE_CODEC", queue.CodecNameJSON))

	switch mode := envOr("REQUEUE_QUEUE", "disabled"); mode {
	case "disabled":
		return queue.NewDisabledPublisher(logger), nil

	case "amqp":
		cfg := amqp.DefaultConfig()
		cfg.URL = envOr("REQUEUE_AMQP_URL", cfg.URL)
		cfg.Exchange = envOr("REQUEUE_AMQP_EXCHANGE", cfg.Exchange)
		cfg.Queue = envOr("REQUEUE_AMQP_QUEUE", cfg.Queue)
		return amqp.New(cfg, amqp.WithLogger(logger), amqp.WithCodec(codec))

	case "redis":
		cfg := redisq.DefaultConfig()
		cfg.Addr = envOr("REQUEUE_REDIS_ADDR", cfg.Addr)
		cfg.Password = os.Getenv("REQUEUE_REDIS_PASSWORD")
		cfg.Stream = envOr("REQUEUE_REDIS_STREAM", cfg.Stream)
		return redisq.New(ctx, cfg, redisq.WithLogger(logger), redisq.WithCodec(codec))

	default:
		return nil, fmt.Errorf("unknown REQUEUE_QUEUE %q", mode)
	}
}

func closePublisher(p queue.Publisher, logger *slog.Logger) {
	if closer, ok := p.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("closing publisher", "error", err)
		}
	}
}

// slogRecorder writes audit events to the structured log. Deployments
// with a real audit trail swap in their own Recorder.
func slogRecorder(logger *slog.Logger) audithook.Recorder {
	return audithook.RecorderFunc(func(_ context.Context, event *audithook.AuditEvent) error {
		logger.Info("audit event",
			"action", event.Action,
			"resource", event.Resource,
			"resource_id", event.ResourceID,
			"outcome", event.Outcome,
			"severity", event.Severity,
		)
		return nil
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
