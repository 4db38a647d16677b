// Package validator independently re-derives the expected post-migration
// state and reports mismatches. It rereads everything fresh from the store
// rather than trusting anything the orchestrator computed.
package validator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/deadpool-game/migrator/internal/domain"
	"github.com/deadpool-game/migrator/internal/logger"
	"github.com/deadpool-game/migrator/internal/rule"
	"github.com/deadpool-game/migrator/internal/store"
)

// Result collects one check's findings
type Result struct {
	Name     string
	Errors   []string
	Warnings []string
	Info     []string
}

// Passed reports whether the check found no errors
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) infof(format string, args ...any) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// Report aggregates all check results
type Report struct {
	Results []Result
}

// ErrorCount sums errors across checks
func (rep *Report) ErrorCount() int {
	n := 0
	for _, result := range rep.Results {
		n += len(result.Errors)
	}
	return n
}

// WarningCount sums warnings across checks
func (rep *Report) WarningCount() int {
	n := 0
	for _, result := range rep.Results {
		n += len(result.Warnings)
	}
	return n
}

// Passed reports whether every check passed
func (rep *Report) Passed() bool {
	return rep.ErrorCount() == 0
}

// Options configures the validator's expectations
type Options struct {
	SourceYear      int
	DestinationYear int
	CapacityLimit   int
}

// Validator reconciles the destination year against freshly recomputed
// expectations. sourceRule is the eligibility policy the migration applied;
// destRule is the same policy shifted to the destination year, used only to
// detect destination-year scoring activity.
type Validator struct {
	opts       Options
	store      *store.Store
	sourceRule rule.Rule
	destRule   rule.Rule
}

// New creates a validator over st
func New(opts Options, st *store.Store, sourceRule, destRule rule.Rule) *Validator {
	return &Validator{opts: opts, store: st, sourceRule: sourceRule, destRule: destRule}
}

// Run executes every check and returns the aggregated report. Metadata
// existence is only checked when includeMetadata is set, since the in-run
// validation pass happens before the metadata record is written.
func (v *Validator) Run(ctx context.Context, includeMetadata bool) *Report {
	logger.InfoCtx(ctx, "Starting migration validation",
		zap.Int("source_year", v.opts.SourceYear),
		zap.Int("destination_year", v.opts.DestinationYear),
	)

	checks := []func(ctx context.Context) Result{
		v.checkPickCounts,
		v.checkNoIneligibleMigrated,
		v.checkDraftSlots,
		v.checkDraftOrder,
		v.checkDestinationScores,
		v.checkDataIntegrity,
	}
	if includeMetadata {
		checks = append([]func(ctx context.Context) Result{v.checkMetadata}, checks...)
	}

	report := &Report{}
	for _, check := range checks {
		result := check(ctx)
		report.Results = append(report.Results, result)

		status := "PASS"
		if !result.Passed() {
			status = "FAIL"
		}
		logger.InfoCtx(ctx, "Validation check finished",
			zap.String("check", result.Name),
			zap.String("status", status),
			zap.Int("errors", len(result.Errors)),
			zap.Int("warnings", len(result.Warnings)),
		)
	}

	logger.InfoCtx(ctx, "Validation finished",
		zap.Int("checks", len(report.Results)),
		zap.Int("errors", report.ErrorCount()),
		zap.Int("warnings", report.WarningCount()),
	)
	return report
}

// checkMetadata verifies the audit record exists and is well-formed
func (v *Validator) checkMetadata(ctx context.Context) Result {
	result := Result{Name: "migration metadata"}

	meta, err := v.store.GetMigrationMetadata(ctx, v.opts.SourceYear, v.opts.DestinationYear)
	if errors.Is(err, domain.ErrNotFound) {
		result.errorf("migration metadata record not found")
		return result
	}
	if err != nil {
		result.errorf("read migration metadata: %v", err)
		return result
	}

	if meta.MigrationDate == "" {
		result.errorf("metadata missing migration date")
	}
	if meta.Strategy != domain.StrategyActivePicksOnly {
		result.errorf("expected strategy %q, got %q", domain.StrategyActivePicksOnly, meta.Strategy)
	}
	switch meta.Status {
	case domain.RunStatusCompleted, domain.RunStatusCompletedWithErrors:
	default:
		result.errorf("invalid migration status %q", meta.Status)
	}
	result.infof("migration %s completed on %s, %d players processed",
		meta.RunID, meta.MigrationDate, meta.PlayersProcessed)
	return result
}

// checkPickCounts verifies each player's destination pick set equals the
// freshly recomputed eligible source set
func (v *Validator) checkPickCounts(ctx context.Context) Result {
	result := Result{Name: "pick counts"}

	players, err := v.store.ListPlayers(ctx)
	if err != nil {
		result.errorf("list players: %v", err)
		return result
	}

	for _, player := range players {
		expected, skipped, err := v.eligibleSourcePicks(ctx, player.ID)
		if err != nil {
			result.errorf("%s: recompute eligible picks: %v", player.Name(), err)
			continue
		}
		actual, err := v.store.GetPicks(ctx, player.ID, v.opts.DestinationYear)
		if err != nil {
			result.errorf("%s: read destination picks: %v", player.Name(), err)
			continue
		}

		if len(actual) != len(expected) {
			result.errorf("%s: expected %d destination picks, got %d (%d skipped)",
				player.Name(), len(expected), len(actual), skipped)
		}

		actualSet := make(map[string]struct{}, len(actual))
		for _, pick := range actual {
			actualSet[pick.PersonID] = struct{}{}
		}
		for personID := range expected {
			if _, ok := actualSet[personID]; !ok {
				result.errorf("%s: missing migrated pick %s", player.Name(), personID)
			}
		}
		for personID := range actualSet {
			if _, ok := expected[personID]; !ok {
				result.errorf("%s: unexpected migrated pick %s", player.Name(), personID)
			}
		}
		if len(actual) == len(expected) {
			result.infof("%s: %d picks migrated correctly (%d skipped)", player.Name(), len(actual), skipped)
		}
	}
	return result
}

// checkNoIneligibleMigrated enforces the hard invariant that no destination
// pick references a person who was ineligible in the source year
func (v *Validator) checkNoIneligibleMigrated(ctx context.Context) Result {
	result := Result{Name: "no ineligible picks migrated"}

	players, err := v.store.ListPlayers(ctx)
	if err != nil {
		result.errorf("list players: %v", err)
		return result
	}

	violations := 0
	for _, player := range players {
		picks, err := v.store.GetPicks(ctx, player.ID, v.opts.DestinationYear)
		if err != nil {
			result.errorf("%s: read destination picks: %v", player.Name(), err)
			continue
		}
		for _, pick := range picks {
			person, err := v.person(ctx, pick.PersonID)
			if err != nil {
				result.errorf("%s: read person %s: %v", player.Name(), pick.PersonID, err)
				continue
			}
			if eligible, reason := v.sourceRule.Eligible(person); !eligible {
				violations++
				result.errorf("%s: ineligible person %s migrated (%s)", player.Name(), pick.PersonID, reason)
			}
		}
	}
	if violations == 0 {
		result.infof("no ineligible picks found in destination year")
	}
	return result
}

// checkDraftSlots re-derives every capacity summary
func (v *Validator) checkDraftSlots(ctx context.Context) Result {
	result := Result{Name: "draft slots"}

	players, err := v.store.ListPlayers(ctx)
	if err != nil {
		result.errorf("list players: %v", err)
		return result
	}

	for _, player := range players {
		slots, err := v.store.GetDraftSlots(ctx, player.ID, v.opts.DestinationYear)
		if errors.Is(err, domain.ErrNotFound) {
			result.errorf("%s: no draft slots record", player.Name())
			continue
		}
		if err != nil {
			result.errorf("%s: read draft slots: %v", player.Name(), err)
			continue
		}
		picks, err := v.store.GetPicks(ctx, player.ID, v.opts.DestinationYear)
		if err != nil {
			result.errorf("%s: read destination picks: %v", player.Name(), err)
			continue
		}

		if slots.CurrentPicks != len(picks) {
			result.errorf("%s: slots current_picks %d does not match actual picks %d",
				player.Name(), slots.CurrentPicks, len(picks))
		}
		if slots.AvailableSlots != v.opts.CapacityLimit-len(picks) {
			result.errorf("%s: slots available_slots %d does not match calculated %d",
				player.Name(), slots.AvailableSlots, v.opts.CapacityLimit-len(picks))
		}
		if slots.MaxPicks != v.opts.CapacityLimit {
			result.errorf("%s: max_picks should be %d, got %d", player.Name(), v.opts.CapacityLimit, slots.MaxPicks)
		}
		if slots.CurrentPicks+slots.AvailableSlots != v.opts.CapacityLimit {
			result.errorf("%s: current_picks + available_slots != %d (%d + %d)",
				player.Name(), v.opts.CapacityLimit, slots.CurrentPicks, slots.AvailableSlots)
		}
	}
	return result
}

// checkDraftOrder verifies the destination ordering is a contiguous 1..N
// covering exactly the player population
func (v *Validator) checkDraftOrder(ctx context.Context) Result {
	result := Result{Name: "draft order"}

	players, err := v.store.ListPlayers(ctx)
	if err != nil {
		result.errorf("list players: %v", err)
		return result
	}
	entries, err := v.store.GetDraftOrder(ctx, v.opts.DestinationYear)
	if err != nil {
		result.errorf("read draft order: %v", err)
		return result
	}

	if len(entries) != len(players) {
		result.errorf("expected %d draft order entries, got %d", len(players), len(entries))
	}
	for i, entry := range entries {
		if entry.Position != i+1 {
			result.errorf("draft position %d missing or out of sequence (found %d)", i+1, entry.Position)
		}
	}

	orderedIDs := make(map[string]int, len(entries))
	for _, entry := range entries {
		orderedIDs[entry.PlayerID]++
	}
	for id, count := range orderedIDs {
		if count > 1 {
			result.errorf("player %s appears %d times in draft order", id, count)
		}
	}
	playerIDs := make(map[string]struct{}, len(players))
	for _, player := range players {
		playerIDs[player.ID] = struct{}{}
		if _, ok := orderedIDs[player.ID]; !ok {
			result.errorf("player %s missing from draft order", player.ID)
		}
	}
	for id := range orderedIDs {
		if _, ok := playerIDs[id]; !ok {
			result.errorf("unknown player %s in draft order", id)
		}
	}
	if result.Passed() {
		result.infof("draft order covers %d players in sequence", len(entries))
	}
	return result
}

// checkDestinationScores warns when the destination year already has
// scoring activity. Deaths recorded against a year that has not elapsed yet
// are an operational signal, not a migration bug.
func (v *Validator) checkDestinationScores(ctx context.Context) Result {
	result := Result{Name: "destination-year scores"}

	players, err := v.store.ListPlayers(ctx)
	if err != nil {
		result.errorf("list players: %v", err)
		return result
	}

	for _, player := range players {
		picks, err := v.store.GetPicks(ctx, player.ID, v.opts.DestinationYear)
		if err != nil {
			result.errorf("%s: read destination picks: %v", player.Name(), err)
			continue
		}
		score := 0
		for _, pick := range picks {
			person, err := v.person(ctx, pick.PersonID)
			if err != nil {
				result.errorf("%s: read person %s: %v", player.Name(), pick.PersonID, err)
				continue
			}
			if person == nil {
				continue
			}
			if eligible, _ := v.destRule.Eligible(person); !eligible {
				score += v.destRule.Contribution(person)
			}
		}
		if score != 0 {
			result.warnf("%s: has %d points in %d already", player.Name(), score, v.opts.DestinationYear)
		}
	}
	return result
}

// checkDataIntegrity verifies referenced persons exist and no player holds
// duplicate destination picks
func (v *Validator) checkDataIntegrity(ctx context.Context) Result {
	result := Result{Name: "data integrity"}

	players, err := v.store.ListPlayers(ctx)
	if err != nil {
		result.errorf("list players: %v", err)
		return result
	}

	referenced := make(map[string]struct{})
	for _, player := range players {
		picks, err := v.store.GetPicks(ctx, player.ID, v.opts.DestinationYear)
		if err != nil {
			result.errorf("%s: read destination picks: %v", player.Name(), err)
			continue
		}
		seen := make(map[string]int, len(picks))
		for _, pick := range picks {
			referenced[pick.PersonID] = struct{}{}
			seen[pick.PersonID]++
		}
		for personID, count := range seen {
			if count > 1 {
				result.errorf("%s: duplicate destination pick %s", player.Name(), personID)
			}
		}
	}

	missing := 0
	for personID := range referenced {
		person, err := v.person(ctx, personID)
		if err != nil {
			result.errorf("read person %s: %v", personID, err)
			continue
		}
		if person == nil {
			missing++
			result.errorf("missing person record %s", personID)
		}
	}
	if missing == 0 {
		result.infof("all %d referenced persons exist", len(referenced))
	}
	return result
}

// eligibleSourcePicks recomputes, fresh from the store, which of a player's
// source-year picks should have carried forward
func (v *Validator) eligibleSourcePicks(ctx context.Context, playerID string) (map[string]struct{}, int, error) {
	picks, err := v.store.GetPicks(ctx, playerID, v.opts.SourceYear)
	if err != nil {
		return nil, 0, err
	}
	eligible := make(map[string]struct{})
	skipped := 0
	for _, pick := range picks {
		person, err := v.person(ctx, pick.PersonID)
		if err != nil {
			return nil, 0, err
		}
		if ok, _ := v.sourceRule.Eligible(person); ok {
			eligible[pick.PersonID] = struct{}{}
		} else {
			skipped++
		}
	}
	return eligible, skipped, nil
}

// person resolves a person, mapping absence to nil (deliberately uncached:
// the validator rereads everything)
func (v *Validator) person(ctx context.Context, personID string) (*domain.Person, error) {
	person, err := v.store.GetPerson(ctx, personID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return person, nil
}
