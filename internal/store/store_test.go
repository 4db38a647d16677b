package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadpool-game/migrator/internal/domain"
	"github.com/deadpool-game/migrator/internal/gateway"
	"github.com/deadpool-game/migrator/internal/store"
)

func newStore() (*store.Store, *gateway.Memory) {
	gw := gateway.NewMemory()
	return store.New(gw), gw
}

func seedPlayer(gw *gateway.Memory, id, first, last string) {
	gw.Seed(gateway.Item{
		Key:        gateway.PlayerKey(id),
		Attributes: map[string]any{"FirstName": first, "LastName": last},
	})
}

func seedPerson(gw *gateway.Memory, id, name, deathDate string, age int) {
	gw.Seed(gateway.Item{
		Key:        gateway.PersonKey(id),
		Attributes: map[string]any{"Name": name, "DeathDate": deathDate, "Age": age},
	})
}

func TestStore_ListPlayers(t *testing.T) {
	s, gw := newStore()
	seedPlayer(gw, "p2", "Grace", "Hopper")
	seedPlayer(gw, "p1", "Ada", "Lovelace")
	// Non-player records must not leak into the population
	seedPerson(gw, "x1", "Someone", "", 50)
	gw.Seed(gateway.Item{Key: gateway.DraftSlotsKey("p1", 2026), Attributes: map[string]any{}})

	players, err := s.ListPlayers(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "p1", players[0].ID)
	assert.Equal(t, "Ada Lovelace", players[0].Name())
	assert.Equal(t, "p2", players[1].ID)
}

func TestStore_GetPerson(t *testing.T) {
	s, gw := newStore()
	seedPerson(gw, "c1", "Famous Person", "2025-06-01", 88)

	person, err := s.GetPerson(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", person.ID)
	assert.Equal(t, "Famous Person", person.Name)
	assert.Equal(t, "2025-06-01", person.DeathDate)
	assert.Equal(t, 88, person.Age)

	_, err = s.GetPerson(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_PutPicksThenGetPicks(t *testing.T) {
	s, _ := newStore()
	picks := []domain.Pick{
		{PlayerID: "p1", PersonID: "c2", Year: 2026, Timestamp: "2026-01-01T00:00:00.000Z"},
		{PlayerID: "p1", PersonID: "c1", Year: 2026, Timestamp: "2026-01-01T00:00:00.000Z"},
	}
	require.NoError(t, s.PutPicks(context.Background(), picks))

	got, err := s.GetPicks(context.Background(), "p1", 2026)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].PersonID)
	assert.Equal(t, "c2", got[1].PersonID)
	assert.Equal(t, 2026, got[0].Year)
	assert.Equal(t, "2026-01-01T00:00:00.000Z", got[0].Timestamp)
}

func TestStore_PutPicks_Idempotent(t *testing.T) {
	s, gw := newStore()
	picks := []domain.Pick{{PlayerID: "p1", PersonID: "c1", Year: 2026, Timestamp: "t"}}
	require.NoError(t, s.PutPicks(context.Background(), picks))
	require.NoError(t, s.PutPicks(context.Background(), picks))

	got, err := s.GetPicks(context.Background(), "p1", 2026)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, gw.Len())
}

func TestStore_GetPicks_YearIsolation(t *testing.T) {
	s, _ := newStore()
	require.NoError(t, s.PutPicks(context.Background(), []domain.Pick{
		{PlayerID: "p1", PersonID: "c1", Year: 2025},
		{PlayerID: "p1", PersonID: "c2", Year: 2026},
	}))

	got, err := s.GetPicks(context.Background(), "p1", 2025)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].PersonID)
}

func TestStore_PutPicks_EmptyIsNoop(t *testing.T) {
	s, gw := newStore()
	require.NoError(t, s.PutPicks(context.Background(), nil))
	assert.Equal(t, 0, gw.Len())
}

func TestStore_DraftSlots_RoundTrip(t *testing.T) {
	s, _ := newStore()
	slots := domain.DraftSlots{
		PlayerID:       "p1",
		Year:           2026,
		MaxPicks:       20,
		CurrentPicks:   14,
		AvailableSlots: 6,
		LastUpdated:    "2026-01-01T00:00:00.000Z",
	}
	require.NoError(t, s.PutDraftSlots(context.Background(), slots))

	got, err := s.GetDraftSlots(context.Background(), "p1", 2026)
	require.NoError(t, err)
	assert.Equal(t, slots, *got)
}

func TestStore_ReplaceDraftOrder_ReplacesStaleEntries(t *testing.T) {
	s, _ := newStore()
	require.NoError(t, s.ReplaceDraftOrder(context.Background(), 2026, []domain.DraftOrderEntry{
		{Year: 2026, Position: 1, PlayerID: "old1"},
		{Year: 2026, Position: 2, PlayerID: "old2"},
		{Year: 2026, Position: 3, PlayerID: "old3"},
	}))
	require.NoError(t, s.ReplaceDraftOrder(context.Background(), 2026, []domain.DraftOrderEntry{
		{Year: 2026, Position: 1, PlayerID: "p2"},
		{Year: 2026, Position: 2, PlayerID: "p1"},
	}))

	got, err := s.GetDraftOrder(context.Background(), 2026)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].PlayerID)
	assert.Equal(t, 1, got[0].Position)
	assert.Equal(t, "p1", got[1].PlayerID)
	assert.Equal(t, 2, got[1].Position)
}

func TestStore_GetDraftOrder_SortedByPosition(t *testing.T) {
	s, _ := newStore()
	entries := make([]domain.DraftOrderEntry, 0, 12)
	for i := 12; i >= 1; i-- {
		entries = append(entries, domain.DraftOrderEntry{Year: 2026, Position: i, PlayerID: "p" + string(rune('a'+i))})
	}
	require.NoError(t, s.ReplaceDraftOrder(context.Background(), 2026, entries))

	got, err := s.GetDraftOrder(context.Background(), 2026)
	require.NoError(t, err)
	require.Len(t, got, 12)
	for i, entry := range got {
		assert.Equal(t, i+1, entry.Position)
	}
}

func TestStore_MigrationMetadata_RoundTrip(t *testing.T) {
	s, _ := newStore()
	meta := domain.MigrationMetadata{
		RunID:                "01JXYZ",
		SourceYear:           2025,
		DestinationYear:      2026,
		MigrationDate:        "2026-01-01T00:00:00.000Z",
		Strategy:             domain.StrategyActivePicksOnly,
		PlayersProcessed:     12,
		ActivePicksMigrated:  180,
		DeceasedPicksSkipped: 23,
		DraftOrdersCreated:   12,
		Status:               domain.RunStatusCompleted,
		ErrorCount:           0,
	}
	require.NoError(t, s.PutMigrationMetadata(context.Background(), meta))

	got, err := s.GetMigrationMetadata(context.Background(), 2025, 2026)
	require.NoError(t, err)
	assert.Equal(t, meta.RunID, got.RunID)
	assert.Equal(t, meta.Strategy, got.Strategy)
	assert.Equal(t, meta.Status, got.Status)
	assert.Equal(t, meta.ActivePicksMigrated, got.ActivePicksMigrated)

	_, err = s.GetMigrationMetadata(context.Background(), 2024, 2025)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
