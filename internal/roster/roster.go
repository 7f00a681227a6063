// Package roster builds and solves the weekly assignment model: one boolean
// decision per eligible (worker, slot) pair, exact headcount coverage, a
// per-day cap, weekly hour caps, and a skill-match minus hours-fairness
// objective.
package roster

import (
	"errors"
	"fmt"

	"github.com/kylemckinstry/rostretto/internal/config"
)

// Solve statuses.
type Status string

const (
	StatusOptimal    Status = "optimal"    // proven optimum within budget
	StatusFeasible   Status = "feasible"   // valid incumbent, optimality not proven
	StatusInfeasible Status = "infeasible" // no assignment satisfies the hard constraints
)

// Diagnostic classes for infeasible models.
const (
	DiagZeroEligible       = "zero_eligible_workers" // a slot's role has no eligible worker
	DiagDayCapacity        = "worker_day_capacity"   // a day demands more assignments than workers may take
	DiagHoursExceeded      = "insufficient_hours"    // required hours exceed available worker-hours
	DiagConstraintConflict = "constraint_conflict"   // hard constraints jointly admit no assignment
)

// Diagnostic identifies the constraint class that made a model unsolvable.
type Diagnostic struct {
	Class  string `json:"class"`
	SlotID uint   `json:"slotId,omitempty"`
	Role   string `json:"role,omitempty"`
	Detail string `json:"detail"`
}

func (d Diagnostic) String() string {
	if d.SlotID != 0 {
		return fmt.Sprintf("%s: slot %d role %s: %s", d.Class, d.SlotID, d.Role, d.Detail)
	}
	return fmt.Sprintf("%s: %s", d.Class, d.Detail)
}

// UnsatisfiableRole reports a slot whose role requirement no eligible worker
// can fill. Detected at build time, one report per occurrence.
type UnsatisfiableRole struct {
	SlotID uint
	Role   string
}

func (u UnsatisfiableRole) Error() string {
	return fmt.Sprintf("roster: role %s at slot %d has zero eligible workers", u.Role, u.SlotID)
}

// ErrBudgetExhausted is returned when the budget expires before any feasible
// assignment was found.
var ErrBudgetExhausted = errors.New("roster: solve budget exhausted before a feasible assignment was found")

// Pair is one chosen (slot, worker) decision.
type Pair struct {
	SlotID   uint
	WorkerID uint
	Role     string
}

// Solution is the outcome of a solve run. Pairs is nil unless Status is
// optimal or feasible.
type Solution struct {
	Status       Status
	Pairs        []Pair
	Objective    float64
	MaxDeviation float64 // largest single-worker hours deviation from band
	Nodes        int
	Diagnostic   *Diagnostic
}

// Policy carries the scheduling rules and objective weights for one build.
type Policy struct {
	MaxPerDay        int // assignments per worker per calendar day
	MaxNodes         int // search node ceiling, 0 for unlimited
	SkillMatchWeight float64
	FairnessWeight   float64
	BelowTargetRate  float64 // penalty per hour under a worker's band minimum
	AboveTargetRate  float64 // penalty per hour over a worker's band maximum
	RoleDimension    map[string]string
	HardCaps         map[string]float64 // role → weekly hard cap; 0 falls back to the band max
}

// PolicyFromConfig derives a solver policy from configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	caps := make(map[string]float64, len(cfg.HoursPolicy))
	for role, band := range cfg.HoursPolicy {
		caps[role] = band.HardCap
	}
	return Policy{
		MaxPerDay:        cfg.Solver.MaxPerDay,
		MaxNodes:         cfg.Solver.MaxNodes,
		SkillMatchWeight: cfg.Weights.SkillMatch,
		FairnessWeight:   cfg.Weights.Fairness,
		BelowTargetRate:  cfg.Weights.PerHourBelowTarget,
		AboveTargetRate:  cfg.Weights.PerHourAboveTarget,
		RoleDimension:    cfg.Skills.RoleDimension,
		HardCaps:         caps,
	}
}

// dimensionFor returns the dominant skill dimension for role.
func (p Policy) dimensionFor(role string) string {
	if dim, ok := p.RoleDimension[role]; ok {
		return dim
	}
	return "customer_service"
}
