package gateway

import (
	"context"

	"github.com/deadpool-game/migrator/internal/breaker"
	"github.com/deadpool-game/migrator/internal/retry"
)

// Resilient decorates a Gateway with the run's retry policy and circuit
// breaker so calling code stays oblivious to both. The breaker sits outside
// the retry loop: once it opens, calls are rejected before any backoff
// sleep, and a single fully-retried call counts as one breaker failure.
type Resilient struct {
	inner   Gateway
	policy  *retry.Policy
	breaker *breaker.Breaker
}

// NewResilient wraps inner with policy and br
func NewResilient(inner Gateway, policy *retry.Policy, br *breaker.Breaker) *Resilient {
	return &Resilient{inner: inner, policy: policy, breaker: br}
}

func (r *Resilient) execute(ctx context.Context, op func() error) error {
	return r.breaker.Execute(func() error {
		return r.policy.Execute(ctx, op)
	})
}

// Get implements Gateway
func (r *Resilient) Get(ctx context.Context, key Key) (*Item, error) {
	var item *Item
	err := r.execute(ctx, func() error {
		var err error
		item, err = r.inner.Get(ctx, key)
		return err
	})
	return item, err
}

// Query implements Gateway
func (r *Resilient) Query(ctx context.Context, pk, skPrefix string) ([]Item, error) {
	var items []Item
	err := r.execute(ctx, func() error {
		var err error
		items, err = r.inner.Query(ctx, pk, skPrefix)
		return err
	})
	return items, err
}

// Scan implements Gateway
func (r *Resilient) Scan(ctx context.Context, pkPrefix, sk string) ([]Item, error) {
	var items []Item
	err := r.execute(ctx, func() error {
		var err error
		items, err = r.inner.Scan(ctx, pkPrefix, sk)
		return err
	})
	return items, err
}

// BatchWrite implements Gateway
func (r *Resilient) BatchWrite(ctx context.Context, items []Item) error {
	return r.execute(ctx, func() error {
		return r.inner.BatchWrite(ctx, items)
	})
}

// BatchDelete implements Gateway
func (r *Resilient) BatchDelete(ctx context.Context, keys []Key) error {
	return r.execute(ctx, func() error {
		return r.inner.BatchDelete(ctx, keys)
	})
}
