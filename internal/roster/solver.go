package roster

import (
	"context"
	"fmt"
	"time"
)

// eps absorbs float noise when comparing objective values, so that genuinely
// tied solutions fall through to the deterministic tie-breaks.
const eps = 1e-9

// budgetCheckInterval is how many search nodes pass between wall-clock and
// context checks.
const budgetCheckInterval = 1024

// Solve runs an exhaustive branch-and-bound search over the model within
// budget. Slots and workers are visited in canonical order and ties are broken
// toward the lexicographically smallest assignment, so a given model and
// budget always yield the same solution.
func Solve(ctx context.Context, m *Model, budget time.Duration) (*Solution, error) {
	if diag := m.preCheck(); diag != nil {
		return &Solution{Status: StatusInfeasible, Diagnostic: diag}, nil
	}

	s := newSearch(m, budget)
	s.run(ctx, 0)

	sol := &Solution{Nodes: s.nodes}
	switch {
	case s.best != nil && !s.stopped:
		sol.Status = StatusOptimal
	case s.best != nil:
		sol.Status = StatusFeasible
	case s.stopped:
		return nil, ErrBudgetExhausted
	default:
		sol.Status = StatusInfeasible
		sol.Diagnostic = m.diagnose()
		return sol, nil
	}
	sol.Objective = s.bestObj
	sol.MaxDeviation = s.bestDev
	sol.Pairs = make([]Pair, len(s.best))
	for i, wi := range s.best {
		u := s.units[i]
		slot := m.Slots[u.slot]
		sol.Pairs[i] = Pair{SlotID: slot.ID, WorkerID: m.Workers[wi].ID, Role: slot.Role}
	}
	return sol, nil
}

// preCheck runs the cheap necessary-condition checks before any search.
func (m *Model) preCheck() *Diagnostic {
	if len(m.Unsatisfiable) > 0 {
		u := m.Unsatisfiable[0]
		return &Diagnostic{
			Class:  DiagZeroEligible,
			SlotID: u.SlotID,
			Role:   u.Role,
			Detail: fmt.Sprintf("%d slot(s) cannot reach headcount with the current worker pool", len(m.Unsatisfiable)),
		}
	}
	for di, date := range m.dates {
		var demand int
		for si, s := range m.Slots {
			if m.dayOf[si] == di {
				demand += s.Headcount
			}
		}
		if limit := len(m.Workers) * m.Policy.MaxPerDay; demand > limit {
			return &Diagnostic{
				Class:  DiagDayCapacity,
				Detail: fmt.Sprintf("%s needs %d assignments but %d workers may take at most %d", date, demand, len(m.Workers), limit),
			}
		}
	}
	if demand, supply := m.demandHours(), m.supplyHours(); demand > supply+eps {
		return &Diagnostic{
			Class:  DiagHoursExceeded,
			Detail: fmt.Sprintf("schedule needs %.1f worker-hours but hard caps allow %.1f", demand, supply),
		}
	}
	return nil
}

// diagnose attributes an exhausted, incumbent-free search to a constraint
// class. The necessary conditions already passed, so the conflict is joint.
func (m *Model) diagnose() *Diagnostic {
	return &Diagnostic{
		Class:  DiagConstraintConflict,
		Detail: "per-day caps, hour caps and role coverage jointly admit no assignment",
	}
}

// unit is one headcount decision: the j-th seat of a slot.
type unit struct {
	slot int
	seat int
}

type search struct {
	m        *Model
	units    []unit
	suffix   []float64 // optimistic skill score for units i..end
	deadline time.Time
	maxNodes int

	choice   []int     // per unit: chosen worker index
	hoursBy  []float64 // per worker: assigned hours so far
	perDay   []int     // worker*len(dates)+day: assignments that day
	skillSum float64

	best    []int
	bestObj float64
	bestDev float64
	nodes   int
	stopped bool
}

func newSearch(m *Model, budget time.Duration) *search {
	s := &search{
		m:        m,
		maxNodes: m.Policy.MaxNodes,
		hoursBy:  make([]float64, len(m.Workers)),
		perDay:   make([]int, len(m.Workers)*len(m.dates)),
	}
	if budget > 0 {
		s.deadline = time.Now().Add(budget)
	}
	for si, slot := range m.Slots {
		for seat := 0; seat < slot.Headcount; seat++ {
			s.units = append(s.units, unit{slot: si, seat: seat})
		}
	}
	s.choice = make([]int, len(s.units))
	s.suffix = make([]float64, len(s.units)+1)
	for i := len(s.units) - 1; i >= 0; i-- {
		var max float64
		for _, v := range m.match[s.units[i].slot] {
			if v > max {
				max = v
			}
		}
		s.suffix[i] = s.suffix[i+1] + max
	}
	return s
}

// run extends the partial assignment at unit u. Within a slot, seats pick
// workers in strictly increasing order, which rules out permuted duplicates
// of the same crew.
func (s *search) run(ctx context.Context, u int) {
	if s.stopped {
		return
	}
	s.nodes++
	if s.nodes%budgetCheckInterval == 0 {
		if ctx.Err() != nil || (!s.deadline.IsZero() && time.Now().After(s.deadline)) {
			s.stopped = true
			return
		}
	}
	if s.maxNodes > 0 && s.nodes > s.maxNodes {
		s.stopped = true
		return
	}
	if u == len(s.units) {
		s.record()
		return
	}
	// Strict inequality keeps tied candidates alive for the tie-breaks.
	if s.best != nil && s.skillSum+s.suffix[u] < s.bestObj-eps {
		return
	}

	un := s.units[u]
	m := s.m
	slot := un.slot
	day := m.dayOf[slot]
	from := 0
	if un.seat > 0 {
		from = s.choice[u-1] + 1 // index into eligible list of the same slot
	}
	for ei := from; ei < len(m.eligible[slot]); ei++ {
		wi := m.eligible[slot][ei]
		if s.perDay[wi*len(m.dates)+day] >= m.Policy.MaxPerDay {
			continue
		}
		if s.hoursBy[wi]+m.hours[slot] > m.capHours[wi]+eps {
			continue
		}
		s.choice[u] = ei
		s.perDay[wi*len(m.dates)+day]++
		s.hoursBy[wi] += m.hours[slot]
		s.skillSum += m.match[slot][ei]

		s.run(ctx, u+1)

		s.skillSum -= m.match[slot][ei]
		s.hoursBy[wi] -= m.hours[slot]
		s.perDay[wi*len(m.dates)+day]--
		if s.stopped {
			return
		}
	}
}

// record scores a complete assignment and keeps it if it beats the incumbent.
// Ties on objective fall to the smallest worst-case worker deviation; the
// search order guarantees the first fully tied solution is lexicographically
// smallest, so fully tied candidates never replace the incumbent.
func (s *search) record() {
	penalty, maxDev := s.deviation()
	obj := s.skillSum - s.m.Policy.FairnessWeight*penalty
	switch {
	case s.best == nil || obj > s.bestObj+eps:
	case obj >= s.bestObj-eps && maxDev < s.bestDev-eps:
	default:
		return
	}
	s.bestObj = obj
	s.bestDev = maxDev
	if s.best == nil {
		s.best = make([]int, len(s.units))
	}
	for i, ei := range s.choice {
		s.best[i] = s.m.eligible[s.units[i].slot][ei]
	}
}

// deviation totals the weighted hour deviations from each worker's target
// band and reports the largest single deviation in hours.
func (s *search) deviation() (penalty, maxDev float64) {
	for wi, w := range s.m.Workers {
		h := s.hoursBy[wi]
		var dev float64
		switch {
		case h < w.TargetMinHours:
			dev = w.TargetMinHours - h
			penalty += dev * s.m.Policy.BelowTargetRate
		case h > w.TargetMaxHours:
			dev = h - w.TargetMaxHours
			penalty += dev * s.m.Policy.AboveTargetRate
		}
		if dev > maxDev {
			maxDev = dev
		}
	}
	return penalty, maxDev
}
