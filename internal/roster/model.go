package roster

import (
	"fmt"
	"sort"
	"time"

	"github.com/kylemckinstry/rostretto/internal/models"
	"github.com/kylemckinstry/rostretto/internal/timeplan"
)

// Model is a built, solver-ready assignment problem. Slots and Workers are
// held in canonical order so repeated solves of the same inputs explore the
// search tree identically.
type Model struct {
	Slots   []models.ShiftSlot
	Workers []models.Worker
	Policy  Policy

	// Unsatisfiable lists every slot whose role no worker can cover. The
	// model still builds so that all occurrences surface in one pass.
	Unsatisfiable []UnsatisfiableRole

	eligible [][]int     // per slot: worker indexes holding the role, ascending
	match    [][]float64 // per slot, aligned with eligible: weighted skill term
	hours    []float64   // per slot: shift duration in hours
	dayOf    []int       // per slot: index into dates
	dates    []string
	capHours []float64 // per worker: weekly hard hour cap
}

// Build assembles a solver model from slots, the worker pool and a policy.
// It fails only on malformed input; coverage gaps are recorded on the model
// as Unsatisfiable entries so the solver can report every one of them.
func Build(slots []models.ShiftSlot, workers []models.Worker, policy Policy) (*Model, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("roster: build: no shift slots")
	}
	if len(workers) == 0 {
		return nil, fmt.Errorf("roster: build: no workers")
	}
	if policy.MaxPerDay <= 0 {
		return nil, fmt.Errorf("roster: build: max per day must be positive, got %d", policy.MaxPerDay)
	}
	for _, s := range slots {
		if _, err := time.Parse(timeplan.DateLayout, s.Date); err != nil {
			return nil, fmt.Errorf("roster: build: slot %d: bad date %q", s.ID, s.Date)
		}
		if s.Headcount <= 0 {
			return nil, fmt.Errorf("roster: build: slot %d: headcount %d", s.ID, s.Headcount)
		}
		if s.Hours() <= 0 {
			return nil, fmt.Errorf("roster: build: slot %d: window %s-%s has no duration", s.ID, s.StartTime, s.EndTime)
		}
	}

	m := &Model{
		Slots:   append([]models.ShiftSlot(nil), slots...),
		Workers: append([]models.Worker(nil), workers...),
		Policy:  policy,
	}
	sort.Slice(m.Slots, func(i, j int) bool {
		if m.Slots[i].Date != m.Slots[j].Date {
			return m.Slots[i].Date < m.Slots[j].Date
		}
		if m.Slots[i].StartTime != m.Slots[j].StartTime {
			return m.Slots[i].StartTime < m.Slots[j].StartTime
		}
		return m.Slots[i].ID < m.Slots[j].ID
	})
	sort.Slice(m.Workers, func(i, j int) bool { return m.Workers[i].ID < m.Workers[j].ID })

	m.capHours = make([]float64, len(m.Workers))
	for wi, w := range m.Workers {
		m.capHours[wi] = w.TargetMaxHours
		// A role hard cap overrides the worker band. With several roles the
		// loosest applicable cap bounds the week.
		var roleCap float64
		for _, role := range w.RoleSet() {
			if c := policy.HardCaps[role]; c > roleCap {
				roleCap = c
			}
		}
		if roleCap > 0 {
			m.capHours[wi] = roleCap
		}
	}

	dayIdx := make(map[string]int)
	m.eligible = make([][]int, len(m.Slots))
	m.match = make([][]float64, len(m.Slots))
	m.hours = make([]float64, len(m.Slots))
	m.dayOf = make([]int, len(m.Slots))
	for si, s := range m.Slots {
		m.hours[si] = s.Hours()
		di, ok := dayIdx[s.Date]
		if !ok {
			di = len(m.dates)
			dayIdx[s.Date] = di
			m.dates = append(m.dates, s.Date)
		}
		m.dayOf[si] = di

		dim := policy.dimensionFor(s.Role)
		for wi, w := range m.Workers {
			if !w.HasRole(s.Role) {
				continue
			}
			m.eligible[si] = append(m.eligible[si], wi)
			m.match[si] = append(m.match[si], policy.SkillMatchWeight*w.Skills().Get(dim)/100)
		}
		if len(m.eligible[si]) < s.Headcount {
			m.Unsatisfiable = append(m.Unsatisfiable, UnsatisfiableRole{SlotID: s.ID, Role: s.Role})
		}
	}
	return m, nil
}

// demandHours returns the total worker-hours the model requires.
func (m *Model) demandHours() float64 {
	var total float64
	for si, s := range m.Slots {
		total += float64(s.Headcount) * m.hours[si]
	}
	return total
}

// supplyHours returns the total worker-hours available under the hard caps.
func (m *Model) supplyHours() float64 {
	var total float64
	for _, c := range m.capHours {
		total += c
	}
	return total
}
