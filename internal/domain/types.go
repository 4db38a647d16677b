package domain

import (
	"strconv"
	"time"
)

// Player is a game participant who accumulates picks within a year.
// Players are read from the store and never created or destroyed here.
type Player struct {
	ID        string
	FirstName string
	LastName  string
}

// Name returns the player's display name
func (p *Player) Name() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Pick is one celebrity selection owned by a player within a year.
// A player cannot hold the same person twice in the same year; the
// storage key is derived from (player, person, year) so rewrites of the
// same pick are idempotent.
type Pick struct {
	PlayerID  string
	PersonID  string
	Year      int
	Timestamp string
}

// Person is a pickable celebrity. DeathDate is empty while the person is
// alive, otherwise an ISO date string such as "2025-03-14".
type Person struct {
	ID        string
	Name      string
	DeathDate string
	Age       int
}

// DeathYear returns the year of death, or 0 if the person is alive or the
// date is malformed.
func (p *Person) DeathYear() int {
	if len(p.DeathDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(p.DeathDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// DraftOrderEntry assigns one draft position to a player for a year.
// Positions within a year are 1..N, unique and contiguous.
type DraftOrderEntry struct {
	Year     int
	Position int
	PlayerID string
}

// DraftSlots summarizes a player's pick capacity for a year.
// Invariant: CurrentPicks + AvailableSlots == MaxPicks.
type DraftSlots struct {
	PlayerID       string
	Year           int
	MaxPicks       int
	CurrentPicks   int
	AvailableSlots int
	LastUpdated    string
}

// LeaderboardEntry is one row of the source-year standings used to derive
// the destination-year draft order.
type LeaderboardEntry struct {
	PlayerID   string
	PlayerName string
	Score      int
	PickCount  int
}

// MigrationStats accumulates counters across a migration run. It is carried
// inside the checkpoint so an interrupted run resumes with its totals intact.
type MigrationStats struct {
	PlayersProcessed     int      `json:"players_processed"`
	ActivePicksMigrated  int      `json:"active_picks_migrated"`
	DeceasedPicksSkipped int      `json:"deceased_picks_skipped"`
	DraftOrdersCreated   int      `json:"draft_orders_created"`
	Errors               []string `json:"errors"`
}

// Checkpoint is the durable progress snapshot for a migration run.
// Absence of a checkpoint means no run is in progress.
type Checkpoint struct {
	Timestamp          time.Time      `json:"timestamp"`
	CompletedPlayerIDs []string       `json:"completed_player_ids"`
	FailedPlayerIDs    []string       `json:"failed_player_ids"`
	Stats              MigrationStats `json:"stats"`
}

// CompletedSet returns the completed player IDs as a set
func (c *Checkpoint) CompletedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.CompletedPlayerIDs))
	for _, id := range c.CompletedPlayerIDs {
		set[id] = struct{}{}
	}
	return set
}

// RunStatus is the terminal status recorded on the migration metadata record
type RunStatus string

const (
	RunStatusCompleted           RunStatus = "COMPLETED"
	RunStatusCompletedWithErrors RunStatus = "COMPLETED_WITH_ERRORS"
)

// StrategyActivePicksOnly carries forward only picks whose person did not
// die in the source year.
const StrategyActivePicksOnly = "ACTIVE_PICKS_ONLY"

// PerformanceReport summarizes run throughput for the metadata record
type PerformanceReport struct {
	TotalDuration    time.Duration `json:"total_duration"`
	PlayersProcessed int           `json:"players_processed"`
	AvgTimePerPlayer time.Duration `json:"avg_time_per_player"`
	PlayersPerMinute float64       `json:"players_per_minute"`
	ThrottleEvents   int           `json:"throttle_events"`
	ErrorRate        float64       `json:"error_rate"`
}

// MigrationMetadata is the immutable audit record written once at the end
// of a non-dry-run migration.
type MigrationMetadata struct {
	RunID                string
	SourceYear           int
	DestinationYear      int
	MigrationDate        string
	Strategy             string
	PlayersProcessed     int
	ActivePicksMigrated  int
	DeceasedPicksSkipped int
	DraftOrdersCreated   int
	Status               RunStatus
	ErrorCount           int
	Performance          PerformanceReport
}
