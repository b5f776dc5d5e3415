// Package retry decides what happens to a failed document-processing
// job: whether the error class is worth retrying, whether the retry
// budget allows another attempt, and with what backoff delay. The
// Handler orchestrates one failure event end to end.
//
// Policies are safe for concurrent use (they are stateless).
package retry

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/xraph/requeue/job"
)

// Config holds retry policy configuration.
type Config struct {
	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// Multiplier is the exponential backoff multiplier.
	Multiplier float64

	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration

	// Jitter enables a random perturbation of the delay to avoid
	// synchronized retry storms.
	Jitter bool

	// JitterFactor is the perturbation range as a fraction of the base
	// delay (0.0 to 1.0).
	JitterFactor float64
}

// DefaultConfig returns a Config with sensible defaults:
// 3 retries with delays 1s, 2s, 4s (±10% jitter), capped at 30s.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 1000 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
		Jitter:       true,
		JitterFactor: 0.1,
	}
}

// nonRetryable is the closed set of classifications that never retry.
// Everything else — including unrecognized classifications — fails open
// toward retrying.
var nonRetryable = map[job.Classification]struct{}{
	job.ClassPermanent:    {},
	job.ClassUnauthorized: {},
}

// Policy classifies errors as retryable and computes backoff delays.
type Policy struct {
	cfg Config
}

// NewPolicy creates a Policy from the given configuration.
func NewPolicy(cfg Config) *Policy {
	return &Policy{cfg: cfg}
}

// MaxRetries returns the configured retry budget.
func (p *Policy) MaxRetries() int { return p.cfg.MaxRetries }

// IsRetryable reports whether the given classification is worth
// retrying. It is false only for the designated non-retryable set.
func (p *Policy) IsRetryable(class job.Classification) bool {
	_, terminal := nonRetryable[class]
	return !terminal
}

// ShouldRetry reports whether another attempt is allowed for a job that
// has already been retried currentRetryCount times.
func (p *Policy) ShouldRetry(currentRetryCount int) bool {
	return currentRetryCount < p.cfg.MaxRetries
}

// NextDelay computes the backoff delay before retry attempt
// retryCount+1: InitialDelay × Multiplier^retryCount, capped at
// MaxDelay, with an optional uniform jitter in
// [-JitterFactor×base, +JitterFactor×base]. Never negative.
func (p *Policy) NextDelay(retryCount int) time.Duration {
	base := float64(p.cfg.InitialDelay) * math.Pow(p.cfg.Multiplier, float64(retryCount))
	base = math.Min(base, float64(p.cfg.MaxDelay))

	if p.cfg.Jitter {
		jitter := (rand.Float64()*2 - 1) * p.cfg.JitterFactor * base //nolint:gosec // jitter intentionally uses non-crypto rand
		base += jitter
	}

	return time.Duration(math.Max(0, base))
}
