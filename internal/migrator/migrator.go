// Package migrator orchestrates the yearly pick migration: rank players
// over the source year, write the destination draft order, fan per-player
// migration tasks out over a bounded worker pool, and reconcile the result.
package migrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/deadpool-game/migrator/internal/adapter"
	"github.com/deadpool-game/migrator/internal/checkpoint"
	"github.com/deadpool-game/migrator/internal/domain"
	"github.com/deadpool-game/migrator/internal/logger"
	"github.com/deadpool-game/migrator/internal/rule"
	"github.com/deadpool-game/migrator/internal/store"
	"github.com/deadpool-game/migrator/internal/validator"
)

// Phase is the orchestrator's state machine position
type Phase string

const (
	PhaseInit          Phase = "INIT"
	PhaseRanking       Phase = "RANKING"
	PhaseOrderingWrite Phase = "ORDERING_WRITE"
	PhaseMigrating     Phase = "MIGRATING"
	PhaseValidating    Phase = "VALIDATING"
	PhaseFinalized     Phase = "FINALIZED"
	PhaseFailed        Phase = "FAILED"
)

// Options configures a migration run
type Options struct {
	SourceYear      int
	DestinationYear int
	CapacityLimit   int
	// Timestamp is stamped onto every migrated record
	Timestamp string
	DryRun    bool
	PoolSize  int
	QueueSize int
	// SaveEvery is the checkpoint cadence in completed players
	SaveEvery int
}

// Migrator coordinates one migration run end to end. It is the single
// writer of the checkpoint; the store it is given should already be
// shielded by the run's retry policy and circuit breaker.
type Migrator struct {
	opts        Options
	store       *store.Store
	rule        rule.Rule
	checkpoints *checkpoint.FileStore
	validator   *validator.Validator
	monitor     *Monitor
	clock       adapter.Clock

	phase Phase

	mu        sync.Mutex
	stats     domain.MigrationStats
	completed map[string]struct{}
	failed    map[string]struct{}

	persons sync.Map // person ID -> *domain.Person, nil entry for missing
}

// New creates a migrator for one run
func New(opts Options, st *store.Store, r rule.Rule, cps *checkpoint.FileStore, val *validator.Validator, mon *Monitor, clock adapter.Clock) *Migrator {
	if opts.SaveEvery <= 0 {
		opts.SaveEvery = 3
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 3
	}
	return &Migrator{
		opts:        opts,
		store:       st,
		rule:        r,
		checkpoints: cps,
		validator:   val,
		monitor:     mon,
		clock:       clock,
		phase:       PhaseInit,
		completed:   make(map[string]struct{}),
		failed:      make(map[string]struct{}),
	}
}

// Phase returns the orchestrator's current phase
func (m *Migrator) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Migrator) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
}

// playerResult is one worker task's outcome
type playerResult struct {
	player   domain.Player
	migrated int
	skipped  int
	duration time.Duration
	err      error
	// notRun marks a task that was dequeued after cancellation and never
	// touched the player; neither a completion nor a failure
	notRun bool
}

// Run executes the migration. Fatal errors in the global phases abort the
// run; per-player failures are recorded and the run continues. The returned
// metadata is also persisted unless this is a dry run.
func (m *Migrator) Run(ctx context.Context) (*domain.MigrationMetadata, error) {
	logger.InfoCtx(ctx, "Starting migration",
		zap.Int("source_year", m.opts.SourceYear),
		zap.Int("destination_year", m.opts.DestinationYear),
		zap.Bool("dry_run", m.opts.DryRun),
	)

	if err := m.resume(ctx); err != nil {
		m.setPhase(PhaseFailed)
		return nil, err
	}

	// RANKING: sequential barrier, must see only source-year state
	m.setPhase(PhaseRanking)
	players, err := m.store.ListPlayers(ctx)
	if err != nil {
		m.setPhase(PhaseFailed)
		return nil, fmt.Errorf("ranking: %w", err)
	}
	leaderboard, err := m.rank(ctx, players)
	if err != nil {
		m.setPhase(PhaseFailed)
		return nil, fmt.Errorf("ranking: %w", err)
	}

	// ORDERING_WRITE: worst-to-first, replacing any prior ordering
	m.setPhase(PhaseOrderingWrite)
	if err := m.writeDraftOrder(ctx, leaderboard); err != nil {
		m.setPhase(PhaseFailed)
		return nil, fmt.Errorf("ordering write: %w", err)
	}

	// MIGRATING: bounded parallel fan-out with periodic checkpoints
	m.setPhase(PhaseMigrating)
	canceled := m.migrate(ctx, players)
	if canceled {
		m.saveCheckpoint()
		logger.WarnCtx(ctx, "Migration canceled, checkpoint saved",
			zap.Int("completed", len(m.completed)),
			zap.Int("failed", len(m.failed)),
		)
		m.setPhase(PhaseFailed)
		return nil, ctx.Err()
	}

	// Every player was processed; a cancellation landing this late has no
	// work left to stop, so the run finalizes instead of failing.
	finishCtx := ctx
	if ctx.Err() != nil {
		finishCtx = context.WithoutCancel(ctx)
	}

	// VALIDATING: reconciliation errors demote the status, never block
	m.setPhase(PhaseValidating)
	if !m.opts.DryRun {
		report := m.validator.Run(finishCtx, false)
		for _, result := range report.Results {
			for _, msg := range result.Errors {
				m.recordError(fmt.Sprintf("validation [%s]: %s", result.Name, msg))
			}
			for _, msg := range result.Warnings {
				logger.WarnCtx(finishCtx, "Validation warning",
					zap.String("check", result.Name),
					zap.String("detail", msg),
				)
			}
		}
	}

	// FINALIZED: one immutable audit record per run
	m.setPhase(PhaseFinalized)
	meta := m.buildMetadata()
	if !m.opts.DryRun {
		if err := m.store.PutMigrationMetadata(finishCtx, *meta); err != nil {
			m.recordError(fmt.Sprintf("metadata write: %v", err))
		}
		if len(m.stats.Errors) == 0 {
			if err := m.checkpoints.Clear(); err != nil {
				logger.WarnCtx(finishCtx, "Failed to clear checkpoint", zap.Error(err))
			}
		} else {
			m.saveCheckpoint()
		}
	}

	m.logSummary(finishCtx, meta)
	return meta, nil
}

// resume loads an existing checkpoint so completed players are skipped.
// Dry runs always start from scratch.
func (m *Migrator) resume(ctx context.Context) error {
	if m.opts.DryRun {
		return nil
	}
	cp, err := m.checkpoints.Load()
	if err != nil {
		return err
	}
	if cp == nil {
		return nil
	}
	logger.InfoCtx(ctx, "Found existing checkpoint, resuming",
		zap.Time("saved_at", cp.Timestamp),
		zap.Int("completed", len(cp.CompletedPlayerIDs)),
		zap.Int("failed", len(cp.FailedPlayerIDs)),
	)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = cp.CompletedSet()
	m.stats = cp.Stats
	if m.stats.Errors == nil {
		m.stats.Errors = []string{}
	}
	return nil
}

// rank scores every player over the source year and returns the standings,
// highest score first
func (m *Migrator) rank(ctx context.Context, players []domain.Player) ([]domain.LeaderboardEntry, error) {
	logger.InfoCtx(ctx, "Calculating source-year leaderboard", zap.Int("players", len(players)))

	leaderboard := make([]domain.LeaderboardEntry, 0, len(players))
	for _, player := range players {
		picks, err := m.store.GetPicks(ctx, player.ID, m.opts.SourceYear)
		if err != nil {
			return nil, err
		}
		score := 0
		for _, pick := range picks {
			person, err := m.person(ctx, pick.PersonID)
			if err != nil {
				return nil, err
			}
			if person == nil {
				continue
			}
			if eligible, _ := m.rule.Eligible(person); !eligible {
				score += m.rule.Contribution(person)
			}
		}
		leaderboard = append(leaderboard, domain.LeaderboardEntry{
			PlayerID:   player.ID,
			PlayerName: player.Name(),
			Score:      score,
			PickCount:  len(picks),
		})
	}

	sort.SliceStable(leaderboard, func(i, j int) bool {
		return leaderboard[i].Score > leaderboard[j].Score
	})
	for i, entry := range leaderboard {
		logger.DebugCtx(ctx, "Leaderboard entry",
			zap.Int("rank", i+1),
			zap.String("player", entry.PlayerName),
			zap.Int("score", entry.Score),
			zap.Int("picks", entry.PickCount),
		)
	}
	return leaderboard, nil
}

// writeDraftOrder assigns destination positions by the reverse of the
// standings: the worst source-year player drafts first
func (m *Migrator) writeDraftOrder(ctx context.Context, leaderboard []domain.LeaderboardEntry) error {
	entries := make([]domain.DraftOrderEntry, 0, len(leaderboard))
	for i := len(leaderboard) - 1; i >= 0; i-- {
		position := len(leaderboard) - i
		entries = append(entries, domain.DraftOrderEntry{
			Year:     m.opts.DestinationYear,
			Position: position,
			PlayerID: leaderboard[i].PlayerID,
		})
		logger.DebugCtx(ctx, "Draft position assigned",
			zap.Int("position", position),
			zap.String("player", leaderboard[i].PlayerName),
			zap.Int("source_score", leaderboard[i].Score),
		)
	}

	if m.opts.DryRun {
		logger.InfoCtx(ctx, "Dry run: would create draft order", zap.Int("positions", len(entries)))
		return nil
	}
	if err := m.store.ReplaceDraftOrder(ctx, m.opts.DestinationYear, entries); err != nil {
		return err
	}
	m.mu.Lock()
	m.stats.DraftOrdersCreated = len(entries)
	m.mu.Unlock()
	logger.InfoCtx(ctx, "Draft order created", zap.Int("positions", len(entries)))
	return nil
}

// migrate fans one task per not-yet-completed player out over the pool.
// Returns true when cancellation left players unprocessed; tasks already
// in flight are always allowed to finish.
func (m *Migrator) migrate(ctx context.Context, players []domain.Player) (canceled bool) {
	remaining := make([]domain.Player, 0, len(players))
	m.mu.Lock()
	for _, player := range players {
		if _, done := m.completed[player.ID]; !done {
			remaining = append(remaining, player)
		}
	}
	m.mu.Unlock()

	logger.InfoCtx(ctx, "Migrating players",
		zap.Int("remaining", len(remaining)),
		zap.Int("pool_size", m.opts.PoolSize),
	)

	pool := pond.NewPool(m.opts.PoolSize, pond.WithQueueSize(m.opts.QueueSize))
	// In-flight tasks run to completion even after cancellation so no
	// partially-written player state is left behind.
	taskCtx := context.WithoutCancel(ctx)

	results := make(chan playerResult)
	go func() {
		for _, player := range remaining {
			if ctx.Err() != nil {
				break
			}
			pool.Submit(func() {
				// The queue can hold the whole population, so a task may be
				// dequeued long after cancellation; only tasks that actually
				// start are allowed to finish.
				if ctx.Err() != nil {
					results <- playerResult{player: player, notRun: true}
					return
				}
				results <- m.migratePlayer(taskCtx, player)
			})
		}
		pool.StopAndWait()
		close(results)
	}()

	processed := 0
	sinceCheckpoint := 0
	for res := range results {
		if res.notRun {
			continue
		}
		processed++
		m.collect(ctx, res)
		if res.err == nil {
			sinceCheckpoint++
			if sinceCheckpoint >= m.opts.SaveEvery {
				m.saveCheckpoint()
				sinceCheckpoint = 0
			}
		}
	}
	return processed < len(remaining)
}

// collect folds one task result into the run state
func (m *Migrator) collect(ctx context.Context, res playerResult) {
	m.monitor.RecordPlayer(res.duration, res.err == nil)

	m.mu.Lock()
	defer m.mu.Unlock()
	if res.err != nil {
		m.failed[res.player.ID] = struct{}{}
		m.stats.Errors = append(m.stats.Errors, fmt.Sprintf("player %s: %v", res.player.Name(), res.err))
		logger.ErrorCtx(ctx, fmt.Errorf("migrating player %s: %w", res.player.Name(), res.err))
		return
	}
	m.completed[res.player.ID] = struct{}{}
	m.stats.PlayersProcessed++
	m.stats.ActivePicksMigrated += res.migrated
	m.stats.DeceasedPicksSkipped += res.skipped
}

// migratePlayer carries one player's eligible picks into the destination
// year and writes the capacity summary. Re-running it is idempotent: the
// same writes land on the same derived keys.
func (m *Migrator) migratePlayer(ctx context.Context, player domain.Player) playerResult {
	start := m.clock.Now()
	res := playerResult{player: player}

	picks, err := m.store.GetPicks(ctx, player.ID, m.opts.SourceYear)
	if err != nil {
		res.err = err
		res.duration = m.clock.Since(start)
		return res
	}

	eligible := make([]domain.Pick, 0, len(picks))
	for _, pick := range picks {
		person, err := m.person(ctx, pick.PersonID)
		if err != nil {
			res.err = err
			res.duration = m.clock.Since(start)
			return res
		}
		ok, reason := m.rule.Eligible(person)
		if !ok {
			res.skipped++
			name := pick.PersonID
			if person != nil {
				name = person.Name
			}
			logger.InfoCtx(ctx, "Skipping pick",
				zap.String("player", player.Name()),
				zap.String("person", name),
				zap.String("reason", reason),
			)
			continue
		}
		eligible = append(eligible, domain.Pick{
			PlayerID:  player.ID,
			PersonID:  pick.PersonID,
			Year:      m.opts.DestinationYear,
			Timestamp: m.opts.Timestamp,
		})
	}

	slots := domain.DraftSlots{
		PlayerID:       player.ID,
		Year:           m.opts.DestinationYear,
		MaxPicks:       m.opts.CapacityLimit,
		CurrentPicks:   len(eligible),
		AvailableSlots: m.opts.CapacityLimit - len(eligible),
		LastUpdated:    m.opts.Timestamp,
	}

	if m.opts.DryRun {
		logger.InfoCtx(ctx, "Dry run: would migrate picks",
			zap.String("player", player.Name()),
			zap.Int("eligible", len(eligible)),
			zap.Int("skipped", res.skipped),
			zap.Int("available_slots", slots.AvailableSlots),
		)
		res.migrated = len(eligible)
		res.duration = m.clock.Since(start)
		return res
	}

	if err := m.store.PutPicks(ctx, eligible); err != nil {
		res.err = err
		res.duration = m.clock.Since(start)
		return res
	}
	if err := m.store.PutDraftSlots(ctx, slots); err != nil {
		res.err = err
		res.duration = m.clock.Since(start)
		return res
	}

	res.migrated = len(eligible)
	res.duration = m.clock.Since(start)
	logger.InfoCtx(ctx, "Player migrated",
		zap.String("player", player.Name()),
		zap.Int("migrated", res.migrated),
		zap.Int("skipped", res.skipped),
		zap.Int("available_slots", slots.AvailableSlots),
	)
	return res
}

// person fetches a person through the run-scoped cache. A missing person
// resolves to nil rather than an error; the rule decides what that means.
func (m *Migrator) person(ctx context.Context, personID string) (*domain.Person, error) {
	if cached, ok := m.persons.Load(personID); ok {
		person, _ := cached.(*domain.Person)
		return person, nil
	}
	person, err := m.store.GetPerson(ctx, personID)
	if errors.Is(err, domain.ErrNotFound) {
		person = nil
	} else if err != nil {
		return nil, err
	}
	m.persons.Store(personID, person)
	return person, nil
}

func (m *Migrator) recordError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Errors = append(m.stats.Errors, msg)
}

// saveCheckpoint snapshots progress; failures to save are logged, not
// fatal, since the worst case is re-processing idempotent work
func (m *Migrator) saveCheckpoint() {
	if m.opts.DryRun {
		return
	}
	m.mu.Lock()
	cp := &domain.Checkpoint{
		Timestamp:          m.clock.Now(),
		CompletedPlayerIDs: sortedKeys(m.completed),
		FailedPlayerIDs:    sortedKeys(m.failed),
		Stats:              m.stats,
	}
	m.mu.Unlock()

	if err := m.checkpoints.Save(cp); err != nil {
		logger.Warn("Failed to save checkpoint", zap.Error(err))
	}
}

func (m *Migrator) buildMetadata() *domain.MigrationMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := domain.RunStatusCompleted
	if len(m.stats.Errors) > 0 {
		status = domain.RunStatusCompletedWithErrors
	}
	return &domain.MigrationMetadata{
		RunID:                ulid.Make().String(),
		SourceYear:           m.opts.SourceYear,
		DestinationYear:      m.opts.DestinationYear,
		MigrationDate:        m.opts.Timestamp,
		Strategy:             domain.StrategyActivePicksOnly,
		PlayersProcessed:     m.stats.PlayersProcessed,
		ActivePicksMigrated:  m.stats.ActivePicksMigrated,
		DeceasedPicksSkipped: m.stats.DeceasedPicksSkipped,
		DraftOrdersCreated:   m.stats.DraftOrdersCreated,
		Status:               status,
		ErrorCount:           len(m.stats.Errors),
		Performance:          m.monitor.Report(),
	}
}

func (m *Migrator) logSummary(ctx context.Context, meta *domain.MigrationMetadata) {
	logger.InfoCtx(ctx, "Migration summary",
		zap.String("run_id", meta.RunID),
		zap.String("status", string(meta.Status)),
		zap.Bool("dry_run", m.opts.DryRun),
		zap.Int("players_processed", meta.PlayersProcessed),
		zap.Int("active_picks_migrated", meta.ActivePicksMigrated),
		zap.Int("deceased_picks_skipped", meta.DeceasedPicksSkipped),
		zap.Int("draft_orders_created", meta.DraftOrdersCreated),
		zap.Int("errors", meta.ErrorCount),
		zap.Duration("total_duration", meta.Performance.TotalDuration),
		zap.Duration("avg_time_per_player", meta.Performance.AvgTimePerPlayer),
		zap.Float64("players_per_minute", meta.Performance.PlayersPerMinute),
		zap.Int("throttle_events", meta.Performance.ThrottleEvents),
		zap.Float64("error_rate", meta.Performance.ErrorRate),
	)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.stats.Errors {
		logger.WarnCtx(ctx, "Run error", zap.String("detail", msg))
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
