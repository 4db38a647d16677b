// Package retry wraps store calls with bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/deadpool-game/migrator/internal/domain"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// Policy retries throttled operations with capped exponential backoff plus
// jitter. Fatal errors are returned immediately; exhausting the attempt
// budget returns the last throttle error. The policy is stateless and safe
// to share across concurrent callers.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// OnThrottle is called once per throttled attempt, before the backoff
	// sleep. Used to feed the run's throttle-event counter.
	OnThrottle func()
}

// NewPolicy returns a policy with the default attempt budget and delays
func NewPolicy() *Policy {
	return &Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Execute runs op, retrying on domain.ErrThrottled until the attempt budget
// is exhausted or ctx is canceled
func (p *Policy) Execute(ctx context.Context, op func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0 // bounded by attempts, not wall time

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if domain.IsRetryable(err) {
			if p.OnThrottle != nil {
				p.OnThrottle()
			}
			return err
		}
		return backoff.Permanent(err)
	}

	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxAttempts-1)), ctx))
}
