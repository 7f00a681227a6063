package roster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/kylemckinstry/rostretto/internal/models"
)

// Export materializes a solved schedule as assignment rows with concrete
// start and end instants in loc. Only optimal or feasible solutions export.
func Export(sol *Solution, slots []models.ShiftSlot, loc *time.Location) ([]models.Assignment, error) {
	if sol.Status != StatusOptimal && sol.Status != StatusFeasible {
		return nil, fmt.Errorf("roster: export: cannot export %s solution", sol.Status)
	}
	byID := make(map[uint]*models.ShiftSlot, len(slots))
	for i := range slots {
		byID[slots[i].ID] = &slots[i]
	}
	seen := make(map[Pair]bool, len(sol.Pairs))
	out := make([]models.Assignment, 0, len(sol.Pairs))
	for _, p := range sol.Pairs {
		slot, ok := byID[p.SlotID]
		if !ok {
			return nil, fmt.Errorf("roster: export: solution references unknown slot %d", p.SlotID)
		}
		if seen[p] {
			return nil, fmt.Errorf("roster: export: duplicate assignment of worker %d to slot %d", p.WorkerID, p.SlotID)
		}
		seen[p] = true
		start, err := slot.StartAt(loc)
		if err != nil {
			return nil, fmt.Errorf("roster: export: slot %d: %w", slot.ID, err)
		}
		end, err := slot.EndAt(loc)
		if err != nil {
			return nil, fmt.Errorf("roster: export: slot %d: %w", slot.ID, err)
		}
		out = append(out, models.Assignment{
			ShiftID:   p.SlotID,
			WorkerID:  p.WorkerID,
			WeekID:    slot.WeekID,
			Role:      p.Role,
			StartTime: start,
			EndTime:   end,
			Present:   true,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShiftID != out[j].ShiftID {
			return out[i].ShiftID < out[j].ShiftID
		}
		return out[i].WorkerID < out[j].WorkerID
	})
	return out, nil
}

// SaveWeek replaces the stored schedule for a week in one transaction, so
// re-running generation is idempotent.
func SaveWeek(db *gorm.DB, weekID string, records []models.Assignment) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("week_id = ?", weekID).Delete(&models.Assignment{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("roster: save week %s: %w", weekID, err)
	}
	return nil
}

// BuildAndSolve is the one-call path from inputs to solution.
func BuildAndSolve(ctx context.Context, slots []models.ShiftSlot, workers []models.Worker, policy Policy, budget time.Duration) (*Solution, error) {
	m, err := Build(slots, workers, policy)
	if err != nil {
		return nil, err
	}
	return Solve(ctx, m, budget)
}
