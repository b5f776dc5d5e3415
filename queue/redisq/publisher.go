// Package redisq provides a Redis Streams backed queue.Publisher.
// Each job is appended to a stream with XADD; consumers read it with
// consumer groups.
package redisq

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/requeue/job"
	"github.com/xraph/requeue/queue"
)

// Config holds Redis connection settings.
type Config struct {
	// Addr is the Redis server address, e.g. "localhost:6379".
	Addr string

	// Password is the optional Redis password.
	Password string

	// DB is the Redis database number.
	DB int

	// Stream is the stream key jobs are appended to.
	Stream string

	// MaxLen caps the stream length (approximate trimming). Zero means
	// unbounded.
	MaxLen int64
}

// DefaultConfig returns a Config targeting a local Redis.
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		Stream: "requeue:jobs",
	}
}

// Publisher appends job messages to a Redis stream.
type Publisher struct {
	cfg    Config
	client *goredis.Client
	codec  queue.Codec
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithCodec sets the wire codec. Defaults to JSON.
func WithCodec(c queue.Codec) Option {
	return func(p *Publisher) { p.codec = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithClient supplies an existing Redis client instead of dialing a new
// one from Config.
func WithClient(client *goredis.Client) Option {
	return func(p *Publisher) { p.client = client }
}

// New creates a Publisher and verifies connectivity with a ping.
func New(ctx context.Context, cfg Config, opts ...Option) (*Publisher, error) {
	p := &Publisher{
		cfg:    cfg,
		codec:  &queue.JSONCodec{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		p.client = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	if err := p.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("requeue/redisq: ping: %w", err)
	}
	return p, nil
}

// Publish appends msg to the configured stream.
func (p *Publisher) Publish(ctx context.Context, msg *job.Message) error {
	body, err := p.codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("requeue/redisq: encode job %s: %w", msg.JobID, err)
	}

	err = p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: p.cfg.Stream,
		MaxLen: p.cfg.MaxLen,
		Approx: p.cfg.MaxLen > 0,
		Values: map[string]interface{}{
			"job_id":       msg.JobID.String(),
			"content_type": p.codec.ContentType(),
			"body":         string(body),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("requeue/redisq: xadd job %s: %w", msg.JobID, err)
	}

	p.logger.Info("job published",
		slog.String("job_id", msg.JobID.String()),
		slog.String("stream", p.cfg.Stream),
		slog.Int("retry_count", msg.RetryCount),
	)
	return nil
}

// Connected reports whether the Redis connection answers a ping.
func (p *Publisher) Connected() bool {
	return p.client.Ping(context.Background()).Err() == nil
}

// Close releases the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

var _ queue.Publisher = (*Publisher)(nil)
