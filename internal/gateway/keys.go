package gateway

import (
	"fmt"
	"strconv"
	"strings"
)

// This file is the only place that knows the "#" composite-key convention.
// Every key shape has a builder and, where records are read back, a parser
// that round-trips with it.

const keySep = "#"

const (
	playerPKPrefix = "PLAYER" + keySep
	personPKPrefix = "PERSON" + keySep
	yearPKPrefix   = "YEAR" + keySep
	pickSKPrefix   = "PICK" + keySep
	orderSKPrefix  = "ORDER" + keySep
	slotsSKPrefix  = "DRAFT_SLOTS" + keySep

	detailsSK  = "DETAILS"
	metadataSK = "METADATA"
)

// PlayerKey addresses a player's details record
func PlayerKey(playerID string) Key {
	return Key{PK: playerPKPrefix + playerID, SK: detailsSK}
}

// PlayerIDFromPK extracts the player ID from a PLAYER# partition key
func PlayerIDFromPK(pk string) (string, error) {
	id, ok := strings.CutPrefix(pk, playerPKPrefix)
	if !ok || id == "" {
		return "", fmt.Errorf("not a player key: %q", pk)
	}
	return id, nil
}

// PersonKey addresses a person's details record
func PersonKey(personID string) Key {
	return Key{PK: personPKPrefix + personID, SK: detailsSK}
}

// PickKey addresses one pick. The key is fully derived from
// (playerID, year, personID), which is what makes re-writing the same pick
// idempotent.
func PickKey(playerID string, year int, personID string) Key {
	return Key{
		PK: playerPKPrefix + playerID,
		SK: fmt.Sprintf("%s%d%s%s", pickSKPrefix, year, keySep, personID),
	}
}

// PickSKPrefix returns the sort-key prefix covering all of a year's picks
func PickSKPrefix(year int) string {
	return fmt.Sprintf("%s%d%s", pickSKPrefix, year, keySep)
}

// ParsePickSK extracts year and person ID from a PICK#<year>#<personID> sort key
func ParsePickSK(sk string) (year int, personID string, err error) {
	rest, ok := strings.CutPrefix(sk, pickSKPrefix)
	if !ok {
		return 0, "", fmt.Errorf("not a pick key: %q", sk)
	}
	yearStr, personID, ok := strings.Cut(rest, keySep)
	if !ok || personID == "" {
		return 0, "", fmt.Errorf("malformed pick key: %q", sk)
	}
	year, err = strconv.Atoi(yearStr)
	if err != nil {
		return 0, "", fmt.Errorf("malformed pick year in %q: %w", sk, err)
	}
	return year, personID, nil
}

// DraftOrderPK returns the partition holding a year's draft order
func DraftOrderPK(year int) string {
	return fmt.Sprintf("%s%d", yearPKPrefix, year)
}

// DraftOrderKey addresses one draft position. The zero-padded position keeps
// the partition sorted in draft order.
func DraftOrderKey(year, position int, playerID string) Key {
	return Key{
		PK: DraftOrderPK(year),
		SK: fmt.Sprintf("%s%02d%sPLAYER%s%s", orderSKPrefix, position, keySep, keySep, playerID),
	}
}

// ParseDraftOrderSK extracts position and player ID from an
// ORDER#<pos>#PLAYER#<playerID> sort key
func ParseDraftOrderSK(sk string) (position int, playerID string, err error) {
	parts := strings.Split(sk, keySep)
	if len(parts) != 4 || parts[0] != "ORDER" || parts[2] != "PLAYER" || parts[3] == "" {
		return 0, "", fmt.Errorf("malformed draft order key: %q", sk)
	}
	position, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, "", fmt.Errorf("malformed draft position in %q: %w", sk, err)
	}
	return position, parts[3], nil
}

// DraftSlotsKey addresses a player's capacity summary for a year
func DraftSlotsKey(playerID string, year int) Key {
	return Key{
		PK: playerPKPrefix + playerID,
		SK: fmt.Sprintf("%s%d", slotsSKPrefix, year),
	}
}

// MigrationMetadataKey addresses the audit record for one migration run
func MigrationMetadataKey(sourceYear, destYear int) Key {
	return Key{
		PK: fmt.Sprintf("MIGRATION%s%d_TO_%d", keySep, sourceYear, destYear),
		SK: metadataSK,
	}
}

// PlayerPKPrefix is the partition-key prefix shared by all player records,
// used to scan the player population.
func PlayerPKPrefix() string { return playerPKPrefix }

// DetailsSK is the sort key of entity detail records
func DetailsSK() string { return detailsSK }

// OrderSKPrefix is the sort-key prefix shared by a year's draft order entries
func OrderSKPrefix() string { return orderSKPrefix }
