// Package rule holds the pluggable eligibility and scoring policy applied
// by the orchestrator. The engine itself only knows the protocol: partition
// picks by eligibility, score players by their ineligible picks.
package rule

import (
	"fmt"

	"github.com/deadpool-game/migrator/internal/domain"
)

// Rule decides which picks carry forward and how much each pick that
// "paid off" contributes to its player's source-year score
type Rule interface {
	// Eligible reports whether a pick of person carries forward into the
	// destination year, with a human-readable reason for the decision
	Eligible(person *domain.Person) (bool, string)

	// Contribution is the score a single ineligible pick of person adds to
	// its player's source-year total. Only called for ineligible picks.
	Contribution(person *domain.Person) int
}

// YearRule is the reference policy: a pick is ineligible iff its person
// died during the source year. A person who died in an earlier year, or who
// is still alive, carries forward. Each death in the source year scores
// 50 + (100 - age).
type YearRule struct {
	SourceYear int
}

// Eligible implements Rule
func (r YearRule) Eligible(person *domain.Person) (bool, string) {
	if person == nil {
		return false, "person not found"
	}
	if person.DeathDate == "" {
		return true, "still alive"
	}
	if person.DeathYear() == r.SourceYear {
		return false, fmt.Sprintf("died in %d (%s)", r.SourceYear, person.DeathDate)
	}
	return true, fmt.Sprintf("died in different year (%s)", person.DeathDate)
}

// Contribution implements Rule
func (r YearRule) Contribution(person *domain.Person) int {
	if person == nil {
		return 0
	}
	return 50 + (100 - person.Age)
}
