// Package skill turns feedback into per-assignment skill points and rolls
// resolved assignments up into each worker's current skill vector.
package skill

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kylemckinstry/rostretto/internal/config"
	"github.com/kylemckinstry/rostretto/internal/models"
)

// ErrWorkerNotFound is returned when aggregation targets an unknown worker.
var ErrWorkerNotFound = errors.New("skill: worker not found")

// Aggregate computes a worker's skill vector from the trailing window of
// resolved, attended assignments. Each dimension is the mean of its recorded
// observations; a dimension with no observation in the window falls back to
// neutral. Workers with no history at all get a flat neutral vector.
func Aggregate(db *gorm.DB, workerID uint, w config.WindowPolicy, neutral float64, now time.Time) (models.SkillVector, error) {
	var count int64
	if err := db.Model(&models.Worker{}).Where("id = ?", workerID).Count(&count).Error; err != nil {
		return models.SkillVector{}, fmt.Errorf("skill: aggregate worker %d: %w", workerID, err)
	}
	if count == 0 {
		return models.SkillVector{}, fmt.Errorf("skill: aggregate worker %d: %w", workerID, ErrWorkerNotFound)
	}

	q := db.Where("worker_id = ? AND resolved = ? AND present = ?", workerID, true, true).
		Order("start_time DESC")
	if w.LastShifts > 0 {
		q = q.Limit(w.LastShifts)
	} else if w.LastWeeks > 0 {
		cutoff := now.AddDate(0, 0, -7*w.LastWeeks)
		q = q.Where("start_time >= ?", cutoff)
	}
	var history []models.Assignment
	if err := q.Find(&history).Error; err != nil {
		return models.SkillVector{}, fmt.Errorf("skill: aggregate worker %d: %w", workerID, err)
	}

	var out models.SkillVector
	for _, dim := range models.Dimensions {
		var sum float64
		var n int
		for i := range history {
			if obs := history[i].SkillPoints().Get(dim); obs != nil {
				sum += *obs
				n++
			}
		}
		if n == 0 {
			out.Set(dim, neutral)
			continue
		}
		out.Set(dim, sum/float64(n))
	}
	return out.Clamped(), nil
}

// AggregateAll recomputes and stores the skill vector of every worker.
// It returns the number of workers updated.
func AggregateAll(db *gorm.DB, w config.WindowPolicy, neutral float64, now time.Time) (int, error) {
	var workers []models.Worker
	if err := db.Order("id").Find(&workers).Error; err != nil {
		return 0, fmt.Errorf("skill: aggregate all: %w", err)
	}
	for i := range workers {
		v, err := Aggregate(db, workers[i].ID, w, neutral, now)
		if err != nil {
			return i, err
		}
		workers[i].SetSkills(v)
		if err := db.Save(&workers[i]).Error; err != nil {
			return i, fmt.Errorf("skill: store vector for worker %d: %w", workers[i].ID, err)
		}
	}
	return len(workers), nil
}
