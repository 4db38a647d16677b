package gateway

import (
	"context"
)

// Key addresses a single record in the composite-key table
type Key struct {
	PK string
	SK string
}

// Item is one stored record: its key plus the remaining attributes.
// Attribute values are plain Go types (string, int, float64, bool, nested
// maps); the gateway implementations handle wire encoding.
type Item struct {
	Key
	Attributes map[string]any
}

// String returns a string attribute, or "" when absent or mistyped
func (i *Item) String(name string) string {
	s, _ := i.Attributes[name].(string)
	return s
}

// Int returns a numeric attribute as int, or 0 when absent or mistyped
func (i *Item) Int(name string) int {
	switch v := i.Attributes[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Gateway is a thin adapter over the external key-value store. It performs
// key-shape translation only; no business logic. Operations return
// domain.ErrThrottled when the store applies backpressure (retryable) and
// plain errors otherwise (fatal).
//
// BatchWrite and BatchDelete accept any number of items and chunk them to
// the store's batch limit internally.
type Gateway interface {
	// Get fetches one record; returns domain.ErrNotFound when absent
	Get(ctx context.Context, key Key) (*Item, error)

	// Query returns all records in partition pk whose sort key starts with
	// skPrefix, ordered by sort key
	Query(ctx context.Context, pk, skPrefix string) ([]Item, error)

	// Scan returns all records whose partition key starts with pkPrefix and
	// whose sort key equals sk, ordered by partition key
	Scan(ctx context.Context, pkPrefix, sk string) ([]Item, error)

	// BatchWrite puts all items, overwriting records at the same key
	BatchWrite(ctx context.Context, items []Item) error

	// BatchDelete removes the records at the given keys
	BatchDelete(ctx context.Context, keys []Key) error
}
