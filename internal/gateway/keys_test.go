package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadpool-game/migrator/internal/gateway"
)

func TestPlayerKey_RoundTrip(t *testing.T) {
	key := gateway.PlayerKey("abc-123")
	assert.Equal(t, "PLAYER#abc-123", key.PK)
	assert.Equal(t, "DETAILS", key.SK)

	id, err := gateway.PlayerIDFromPK(key.PK)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)
}

func TestPlayerIDFromPK_Invalid(t *testing.T) {
	_, err := gateway.PlayerIDFromPK("PERSON#xyz")
	assert.Error(t, err)

	_, err = gateway.PlayerIDFromPK("PLAYER#")
	assert.Error(t, err)
}

func TestPickKey_RoundTrip(t *testing.T) {
	key := gateway.PickKey("p1", 2026, "person-9")
	assert.Equal(t, "PLAYER#p1", key.PK)
	assert.Equal(t, "PICK#2026#person-9", key.SK)

	year, personID, err := gateway.ParsePickSK(key.SK)
	require.NoError(t, err)
	assert.Equal(t, 2026, year)
	assert.Equal(t, "person-9", personID)
}

func TestPickSKPrefix_CoversYearPicks(t *testing.T) {
	prefix := gateway.PickSKPrefix(2025)
	assert.Equal(t, "PICK#2025#", prefix)

	key := gateway.PickKey("p1", 2025, "x")
	assert.Contains(t, key.SK, prefix)
}

func TestParsePickSK_Malformed(t *testing.T) {
	cases := []string{
		"DETAILS",
		"PICK#2025",
		"PICK#2025#",
		"PICK#notayear#person",
	}
	for _, sk := range cases {
		_, _, err := gateway.ParsePickSK(sk)
		assert.Error(t, err, "expected error for %q", sk)
	}
}

func TestDraftOrderKey_RoundTrip(t *testing.T) {
	key := gateway.DraftOrderKey(2026, 3, "p7")
	assert.Equal(t, "YEAR#2026", key.PK)
	assert.Equal(t, "ORDER#03#PLAYER#p7", key.SK)

	position, playerID, err := gateway.ParseDraftOrderSK(key.SK)
	require.NoError(t, err)
	assert.Equal(t, 3, position)
	assert.Equal(t, "p7", playerID)
}

func TestDraftOrderKey_ZeroPaddedPositionsSortNaturally(t *testing.T) {
	second := gateway.DraftOrderKey(2026, 2, "a")
	tenth := gateway.DraftOrderKey(2026, 10, "b")
	assert.Less(t, second.SK, tenth.SK)
}

func TestParseDraftOrderSK_Malformed(t *testing.T) {
	cases := []string{
		"ORDER#01",
		"ORDER#one#PLAYER#p1",
		"ORDER#01#PLAYER#",
		"PICK#2025#p1",
	}
	for _, sk := range cases {
		_, _, err := gateway.ParseDraftOrderSK(sk)
		assert.Error(t, err, "expected error for %q", sk)
	}
}

func TestDraftSlotsKey(t *testing.T) {
	key := gateway.DraftSlotsKey("p1", 2026)
	assert.Equal(t, "PLAYER#p1", key.PK)
	assert.Equal(t, "DRAFT_SLOTS#2026", key.SK)
}

func TestMigrationMetadataKey(t *testing.T) {
	key := gateway.MigrationMetadataKey(2025, 2026)
	assert.Equal(t, "MIGRATION#2025_TO_2026", key.PK)
	assert.Equal(t, "METADATA", key.SK)
}
