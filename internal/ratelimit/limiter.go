// Package ratelimit bounds the engine's aggregate store traffic. The worker
// pool bounds parallelism per player; this limiter bounds concurrent store
// calls across all workers and, optionally, their request rate.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// DefaultMaxInFlight matches a three-worker pool where each worker may have
// a read and a write outstanding
const DefaultMaxInFlight = 5

// Limiter gates operations behind a concurrency cap and an optional token
// bucket. The zero rate means uncapped throughput; the concurrency cap is
// always enforced.
type Limiter struct {
	sem chan struct{}
	rl  *rate.Limiter
}

// New creates a limiter admitting at most maxInFlight concurrent operations
// and, when rps > 0, at most rps operations per second with the given burst.
func New(maxInFlight int, rps float64, burst int) *Limiter {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	l := &Limiter{sem: make(chan struct{}, maxInFlight)}
	if rps > 0 {
		if burst <= 0 {
			burst = 1
		}
		l.rl = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return l
}

// Do runs op once admission is granted. Waiting is canceled by ctx; the
// operation's own error passes through untouched.
func (l *Limiter) Do(ctx context.Context, op func() error) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("awaiting store slot: %w", ctx.Err())
	}
	defer func() { <-l.sem }()

	if l.rl != nil {
		if err := l.rl.Wait(ctx); err != nil {
			return fmt.Errorf("awaiting rate token: %w", err)
		}
	}
	return op()
}
