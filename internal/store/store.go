// Package store maps domain records onto the key-value gateway. It is pure
// key-shape and attribute translation: no retries, no business rules.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/deadpool-game/migrator/internal/domain"
	"github.com/deadpool-game/migrator/internal/gateway"
)

// Store reads and writes game records through a Gateway
type Store struct {
	gw gateway.Gateway
}

// New creates a store over gw
func New(gw gateway.Gateway) *Store {
	return &Store{gw: gw}
}

// ListPlayers returns every player with a details record, ordered by ID
func (s *Store) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	items, err := s.gw.Scan(ctx, gateway.PlayerPKPrefix(), gateway.DetailsSK())
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	players := make([]domain.Player, 0, len(items))
	for _, item := range items {
		id, err := gateway.PlayerIDFromPK(item.PK)
		if err != nil {
			return nil, err
		}
		players = append(players, domain.Player{
			ID:        id,
			FirstName: item.String("FirstName"),
			LastName:  item.String("LastName"),
		})
	}
	return players, nil
}

// GetPerson fetches one person's details
func (s *Store) GetPerson(ctx context.Context, personID string) (*domain.Person, error) {
	item, err := s.gw.Get(ctx, gateway.PersonKey(personID))
	if err != nil {
		return nil, err
	}
	return &domain.Person{
		ID:        personID,
		Name:      item.String("Name"),
		DeathDate: item.String("DeathDate"),
		Age:       item.Int("Age"),
	}, nil
}

// GetPicks returns a player's picks for one year, ordered by person ID
func (s *Store) GetPicks(ctx context.Context, playerID string, year int) ([]domain.Pick, error) {
	pk := gateway.PlayerKey(playerID).PK
	items, err := s.gw.Query(ctx, pk, gateway.PickSKPrefix(year))
	if err != nil {
		return nil, fmt.Errorf("get %d picks for player %s: %w", year, playerID, err)
	}
	picks := make([]domain.Pick, 0, len(items))
	for _, item := range items {
		pickYear, personID, err := gateway.ParsePickSK(item.SK)
		if err != nil {
			return nil, err
		}
		picks = append(picks, domain.Pick{
			PlayerID:  playerID,
			PersonID:  personID,
			Year:      pickYear,
			Timestamp: item.String("Timestamp"),
		})
	}
	return picks, nil
}

// PutPicks writes picks at their derived keys, overwriting idempotently
func (s *Store) PutPicks(ctx context.Context, picks []domain.Pick) error {
	if len(picks) == 0 {
		return nil
	}
	items := make([]gateway.Item, 0, len(picks))
	for _, pick := range picks {
		items = append(items, gateway.Item{
			Key: gateway.PickKey(pick.PlayerID, pick.Year, pick.PersonID),
			Attributes: map[string]any{
				"Year":      pick.Year,
				"PersonID":  pick.PersonID,
				"Timestamp": pick.Timestamp,
			},
		})
	}
	if err := s.gw.BatchWrite(ctx, items); err != nil {
		return fmt.Errorf("put picks: %w", err)
	}
	return nil
}

// PutDraftSlots writes (or overwrites) a player's capacity summary
func (s *Store) PutDraftSlots(ctx context.Context, slots domain.DraftSlots) error {
	item := gateway.Item{
		Key: gateway.DraftSlotsKey(slots.PlayerID, slots.Year),
		Attributes: map[string]any{
			"Type":           "DraftSlots",
			"Year":           slots.Year,
			"MaxPicks":       slots.MaxPicks,
			"CurrentPicks":   slots.CurrentPicks,
			"AvailableSlots": slots.AvailableSlots,
			"LastUpdated":    slots.LastUpdated,
		},
	}
	if err := s.gw.BatchWrite(ctx, []gateway.Item{item}); err != nil {
		return fmt.Errorf("put draft slots for player %s: %w", slots.PlayerID, err)
	}
	return nil
}

// GetDraftSlots fetches a player's capacity summary for one year
func (s *Store) GetDraftSlots(ctx context.Context, playerID string, year int) (*domain.DraftSlots, error) {
	item, err := s.gw.Get(ctx, gateway.DraftSlotsKey(playerID, year))
	if err != nil {
		return nil, err
	}
	return &domain.DraftSlots{
		PlayerID:       playerID,
		Year:           year,
		MaxPicks:       item.Int("MaxPicks"),
		CurrentPicks:   item.Int("CurrentPicks"),
		AvailableSlots: item.Int("AvailableSlots"),
		LastUpdated:    item.String("LastUpdated"),
	}, nil
}

// GetDraftOrder returns a year's draft order sorted by position
func (s *Store) GetDraftOrder(ctx context.Context, year int) ([]domain.DraftOrderEntry, error) {
	items, err := s.gw.Query(ctx, gateway.DraftOrderPK(year), gateway.OrderSKPrefix())
	if err != nil {
		return nil, fmt.Errorf("get %d draft order: %w", year, err)
	}
	entries := make([]domain.DraftOrderEntry, 0, len(items))
	for _, item := range items {
		position, playerID, err := gateway.ParseDraftOrderSK(item.SK)
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.DraftOrderEntry{
			Year:     year,
			Position: position,
			PlayerID: playerID,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })
	return entries, nil
}

// ReplaceDraftOrder deletes any existing draft order for the year and
// writes entries in its place
func (s *Store) ReplaceDraftOrder(ctx context.Context, year int, entries []domain.DraftOrderEntry) error {
	existing, err := s.gw.Query(ctx, gateway.DraftOrderPK(year), gateway.OrderSKPrefix())
	if err != nil {
		return fmt.Errorf("read existing %d draft order: %w", year, err)
	}
	if len(existing) > 0 {
		keys := make([]gateway.Key, 0, len(existing))
		for _, item := range existing {
			keys = append(keys, item.Key)
		}
		if err := s.gw.BatchDelete(ctx, keys); err != nil {
			return fmt.Errorf("delete existing %d draft order: %w", year, err)
		}
	}
	items := make([]gateway.Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, gateway.Item{
			Key: gateway.DraftOrderKey(year, entry.Position, entry.PlayerID),
			Attributes: map[string]any{
				"Type":       "DraftOrder",
				"Year":       year,
				"DraftOrder": entry.Position,
				"PlayerID":   entry.PlayerID,
			},
		})
	}
	if err := s.gw.BatchWrite(ctx, items); err != nil {
		return fmt.Errorf("write %d draft order: %w", year, err)
	}
	return nil
}

// PutMigrationMetadata writes the run's audit record
func (s *Store) PutMigrationMetadata(ctx context.Context, meta domain.MigrationMetadata) error {
	item := gateway.Item{
		Key: gateway.MigrationMetadataKey(meta.SourceYear, meta.DestinationYear),
		Attributes: map[string]any{
			"Type":                 "MigrationMetadata",
			"RunID":                meta.RunID,
			"MigrationDate":        meta.MigrationDate,
			"Strategy":             meta.Strategy,
			"PlayersProcessed":     meta.PlayersProcessed,
			"ActivePicksMigrated":  meta.ActivePicksMigrated,
			"DeceasedPicksSkipped": meta.DeceasedPicksSkipped,
			"DraftOrdersCreated":   meta.DraftOrdersCreated,
			"Status":               string(meta.Status),
			"ErrorCount":           meta.ErrorCount,
			"PerformanceMetrics": map[string]any{
				"TotalDurationSeconds": meta.Performance.TotalDuration.Seconds(),
				"PlayersProcessed":     meta.Performance.PlayersProcessed,
				"AvgTimePerPlayer":     meta.Performance.AvgTimePerPlayer.Seconds(),
				"PlayersPerMinute":     meta.Performance.PlayersPerMinute,
				"ThrottleEvents":       meta.Performance.ThrottleEvents,
				"ErrorRate":            meta.Performance.ErrorRate,
			},
		},
	}
	if err := s.gw.BatchWrite(ctx, []gateway.Item{item}); err != nil {
		return fmt.Errorf("put migration metadata: %w", err)
	}
	return nil
}

// GetMigrationMetadata fetches the audit record for one migration
func (s *Store) GetMigrationMetadata(ctx context.Context, sourceYear, destYear int) (*domain.MigrationMetadata, error) {
	item, err := s.gw.Get(ctx, gateway.MigrationMetadataKey(sourceYear, destYear))
	if err != nil {
		return nil, err
	}
	return &domain.MigrationMetadata{
		RunID:                item.String("RunID"),
		SourceYear:           sourceYear,
		DestinationYear:      destYear,
		MigrationDate:        item.String("MigrationDate"),
		Strategy:             item.String("Strategy"),
		PlayersProcessed:     item.Int("PlayersProcessed"),
		ActivePicksMigrated:  item.Int("ActivePicksMigrated"),
		DeceasedPicksSkipped: item.Int("DeceasedPicksSkipped"),
		DraftOrdersCreated:   item.Int("DraftOrdersCreated"),
		Status:               domain.RunStatus(item.String("Status")),
		ErrorCount:           item.Int("ErrorCount"),
	}, nil
}
