package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/deadpool-game/migrator/internal/domain"
)

// Memory is an in-process Gateway over a mutex-guarded map. It backs the
// engine's tests and dry-run sandboxing; semantics mirror the DynamoDB
// implementation (prefix queries sorted by key, last-write-wins batch puts).
type Memory struct {
	mu    sync.RWMutex
	items map[Key]Item

	// FailWith, when set, is returned by every operation. Tests use it to
	// simulate throttling and outages.
	failWith error
}

// NewMemory creates an empty in-memory gateway
func NewMemory() *Memory {
	return &Memory{items: make(map[Key]Item)}
}

// FailWith makes every subsequent operation return err; pass nil to heal
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Seed loads items without going through BatchWrite, for test setup
func (m *Memory) Seed(items ...Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.items[it.Key] = cloneItem(it)
	}
}

// Len returns the number of stored records
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Get implements Gateway
func (m *Memory) Get(ctx context.Context, key Key) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	it, ok := m.items[key]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", key.PK, key.SK, domain.ErrNotFound)
	}
	out := cloneItem(it)
	return &out, nil
}

// Query implements Gateway
func (m *Memory) Query(ctx context.Context, pk, skPrefix string) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []Item
	for key, it := range m.items {
		if key.PK == pk && strings.HasPrefix(key.SK, skPrefix) {
			out = append(out, cloneItem(it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SK < out[j].SK })
	return out, nil
}

// Scan implements Gateway
func (m *Memory) Scan(ctx context.Context, pkPrefix, sk string) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []Item
	for key, it := range m.items {
		if strings.HasPrefix(key.PK, pkPrefix) && key.SK == sk {
			out = append(out, cloneItem(it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PK < out[j].PK })
	return out, nil
}

// BatchWrite implements Gateway
func (m *Memory) BatchWrite(ctx context.Context, items []Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for _, it := range items {
		m.items[it.Key] = cloneItem(it)
	}
	return nil
}

// BatchDelete implements Gateway
func (m *Memory) BatchDelete(ctx context.Context, keys []Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

func cloneItem(it Item) Item {
	attrs := make(map[string]any, len(it.Attributes))
	for k, v := range it.Attributes {
		attrs[k] = v
	}
	return Item{Key: it.Key, Attributes: attrs}
}
