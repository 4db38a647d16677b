package gateway_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadpool-game/migrator/internal/domain"
	"github.com/deadpool-game/migrator/internal/gateway"
)

func TestMemory_GetMissing_ReturnsNotFound(t *testing.T) {
	m := gateway.NewMemory()
	_, err := m.Get(context.Background(), gateway.PlayerKey("nobody"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemory_BatchWriteThenGet(t *testing.T) {
	m := gateway.NewMemory()
	item := gateway.Item{
		Key:        gateway.PlayerKey("p1"),
		Attributes: map[string]any{"FirstName": "Ada", "Age": 36},
	}
	require.NoError(t, m.BatchWrite(context.Background(), []gateway.Item{item}))

	got, err := m.Get(context.Background(), gateway.PlayerKey("p1"))
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.String("FirstName"))
	assert.Equal(t, 36, got.Int("Age"))
}

func TestMemory_Query_PrefixSorted(t *testing.T) {
	m := gateway.NewMemory()
	m.Seed(
		gateway.Item{Key: gateway.PickKey("p1", 2025, "b"), Attributes: map[string]any{}},
		gateway.Item{Key: gateway.PickKey("p1", 2025, "a"), Attributes: map[string]any{}},
		gateway.Item{Key: gateway.PickKey("p1", 2026, "c"), Attributes: map[string]any{}},
		gateway.Item{Key: gateway.PickKey("p2", 2025, "a"), Attributes: map[string]any{}},
	)

	items, err := m.Query(context.Background(), "PLAYER#p1", gateway.PickSKPrefix(2025))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "PICK#2025#a", items[0].SK)
	assert.Equal(t, "PICK#2025#b", items[1].SK)
}

func TestMemory_Scan_MatchesPrefixAndSortKey(t *testing.T) {
	m := gateway.NewMemory()
	m.Seed(
		gateway.Item{Key: gateway.PlayerKey("z"), Attributes: map[string]any{}},
		gateway.Item{Key: gateway.PlayerKey("a"), Attributes: map[string]any{}},
		gateway.Item{Key: gateway.PersonKey("a"), Attributes: map[string]any{}},
		gateway.Item{Key: gateway.DraftSlotsKey("a", 2026), Attributes: map[string]any{}},
	)

	items, err := m.Scan(context.Background(), gateway.PlayerPKPrefix(), gateway.DetailsSK())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "PLAYER#a", items[0].PK)
	assert.Equal(t, "PLAYER#z", items[1].PK)
}

func TestMemory_BatchDelete(t *testing.T) {
	m := gateway.NewMemory()
	m.Seed(gateway.Item{Key: gateway.PlayerKey("p1"), Attributes: map[string]any{}})
	require.Equal(t, 1, m.Len())

	require.NoError(t, m.BatchDelete(context.Background(), []gateway.Key{gateway.PlayerKey("p1")}))
	assert.Equal(t, 0, m.Len())

	// Deleting an absent key is a no-op
	require.NoError(t, m.BatchDelete(context.Background(), []gateway.Key{gateway.PlayerKey("p1")}))
}

func TestMemory_FailWith_InjectsAndHeals(t *testing.T) {
	m := gateway.NewMemory()
	m.Seed(gateway.Item{Key: gateway.PlayerKey("p1"), Attributes: map[string]any{}})

	boom := errors.New("boom")
	m.FailWith(boom)
	_, err := m.Get(context.Background(), gateway.PlayerKey("p1"))
	assert.ErrorIs(t, err, boom)
	_, err = m.Scan(context.Background(), gateway.PlayerPKPrefix(), gateway.DetailsSK())
	assert.ErrorIs(t, err, boom)

	m.FailWith(nil)
	_, err = m.Get(context.Background(), gateway.PlayerKey("p1"))
	assert.NoError(t, err)
}

func TestMemory_CanceledContext(t *testing.T) {
	m := gateway.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Get(ctx, gateway.PlayerKey("p1"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestItem_Int_AcceptsNumericTypes(t *testing.T) {
	item := gateway.Item{Attributes: map[string]any{
		"a": 1,
		"b": int64(2),
		"c": float64(3),
		"d": "not a number",
	}}
	assert.Equal(t, 1, item.Int("a"))
	assert.Equal(t, 2, item.Int("b"))
	assert.Equal(t, 3, item.Int("c"))
	assert.Equal(t, 0, item.Int("d"))
	assert.Equal(t, 0, item.Int("missing"))
}
