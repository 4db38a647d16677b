// Package breaker guards the whole run's store traffic with a single
// circuit breaker so a degraded store halts new work quickly instead of
// every task retrying into the outage.
package breaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/deadpool-game/migrator/internal/domain"
)

const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 60 * time.Second
)

// Settings configures a Breaker
type Settings struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker open
	FailureThreshold uint32
	// Cooldown is how long the breaker stays open before allowing a
	// single half-open probe
	Cooldown time.Duration
}

// Breaker rejects calls fast with domain.ErrCircuitOpen after repeated
// failures, and self-probes after the cooldown. One instance is shared by
// all worker tasks of a run; state updates are internally synchronized.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

// New creates a breaker in the closed state
func New(name string, settings Settings) *Breaker {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = DefaultFailureThreshold
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = DefaultCooldown
	}
	return &Breaker{
		cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1, // single probe while half-open
			Timeout:     settings.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.FailureThreshold
			},
			// A missing record is a normal outcome, not a store failure
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, domain.ErrNotFound)
			},
		}),
	}
}

// Execute runs op unless the breaker is open. Rejections surface as
// domain.ErrCircuitOpen without op being invoked.
func (b *Breaker) Execute(op func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, op()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", domain.ErrCircuitOpen, b.cb.Name())
	}
	return err
}

// State reports the breaker state for logging
func (b *Breaker) State() string {
	return b.cb.State().String()
}
