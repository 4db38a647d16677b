package gateway

import (
	"context"

	"github.com/deadpool-game/migrator/internal/ratelimit"
)

// Limited decorates a Gateway with the run's admission limiter. It sits
// inside the retry layer so each retry attempt re-acquires a slot instead
// of holding one through the backoff sleep.
type Limited struct {
	inner   Gateway
	limiter *ratelimit.Limiter
}

// NewLimited wraps inner with limiter
func NewLimited(inner Gateway, limiter *ratelimit.Limiter) *Limited {
	return &Limited{inner: inner, limiter: limiter}
}

// Get implements Gateway
func (l *Limited) Get(ctx context.Context, key Key) (*Item, error) {
	var item *Item
	err := l.limiter.Do(ctx, func() error {
		var err error
		item, err = l.inner.Get(ctx, key)
		return err
	})
	return item, err
}

// Query implements Gateway
func (l *Limited) Query(ctx context.Context, pk, skPrefix string) ([]Item, error) {
	var items []Item
	err := l.limiter.Do(ctx, func() error {
		var err error
		items, err = l.inner.Query(ctx, pk, skPrefix)
		return err
	})
	return items, err
}

// Scan implements Gateway
func (l *Limited) Scan(ctx context.Context, pkPrefix, sk string) ([]Item, error) {
	var items []Item
	err := l.limiter.Do(ctx, func() error {
		var err error
		items, err = l.inner.Scan(ctx, pkPrefix, sk)
		return err
	})
	return items, err
}

// BatchWrite implements Gateway
func (l *Limited) BatchWrite(ctx context.Context, items []Item) error {
	return l.limiter.Do(ctx, func() error {
		return l.inner.BatchWrite(ctx, items)
	})
}

// BatchDelete implements Gateway
func (l *Limited) BatchDelete(ctx context.Context, keys []Key) error {
	return l.limiter.Do(ctx, func() error {
		return l.inner.BatchDelete(ctx, keys)
	})
}
