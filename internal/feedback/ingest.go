// Package feedback validates and records post-shift evaluations.
package feedback

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kylemckinstry/rostretto/internal/models"
)

// ValidationError marks feedback rejected on its content rather than on a
// storage failure, so callers can map it to a 4xx response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("feedback: invalid %s: %s", e.Field, e.Reason)
}

// Ingest validates fb against the stored schedule and appends it. The record
// must target an existing assignment whose shift has already started, carry a
// rating and traffic level within range, and either be the first evaluation
// of its (shift, worker) pair or supersede an earlier one. A missing ID is
// assigned; SubmittedAt defaults to now.
func Ingest(db *gorm.DB, fb *models.Feedback, now time.Time) error {
	if fb.Rating < models.MinRating || fb.Rating > models.MaxRating {
		return &ValidationError{Field: "rating", Reason: fmt.Sprintf("%d is outside %d-%d", fb.Rating, models.MinRating, models.MaxRating)}
	}
	fb.Traffic = strings.ToLower(strings.TrimSpace(fb.Traffic))
	if !models.ValidTraffic(fb.Traffic) {
		return &ValidationError{Field: "traffic", Reason: fmt.Sprintf("%q is not one of %s", fb.Traffic, strings.Join(models.TrafficLevels, ", "))}
	}

	var asgn models.Assignment
	err := db.Where("shift_id = ? AND worker_id = ?", fb.ShiftID, fb.WorkerID).First(&asgn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ValidationError{Field: "assignment", Reason: fmt.Sprintf("worker %d is not assigned to shift %d", fb.WorkerID, fb.ShiftID)}
	}
	if err != nil {
		return fmt.Errorf("feedback: ingest: load assignment: %w", err)
	}
	if now.Before(asgn.StartTime) {
		return &ValidationError{Field: "shift", Reason: fmt.Sprintf("shift %d has not started yet", fb.ShiftID)}
	}

	if fb.SupersedesID != nil {
		var prev models.Feedback
		err := db.Where("id = ?", *fb.SupersedesID).First(&prev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ValidationError{Field: "supersedesId", Reason: fmt.Sprintf("feedback %s does not exist", *fb.SupersedesID)}
		}
		if err != nil {
			return fmt.Errorf("feedback: ingest: load superseded record: %w", err)
		}
		if prev.ShiftID != fb.ShiftID || prev.WorkerID != fb.WorkerID {
			return &ValidationError{Field: "supersedesId", Reason: "superseded feedback belongs to a different shift or worker"}
		}
	} else {
		var count int64
		if err := db.Model(&models.Feedback{}).
			Where("shift_id = ? AND worker_id = ?", fb.ShiftID, fb.WorkerID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("feedback: ingest: check duplicates: %w", err)
		}
		if count > 0 {
			return &ValidationError{Field: "assignment", Reason: "feedback for this shift and worker already exists; submit a correction with supersedesId"}
		}
	}

	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.SubmittedAt.IsZero() {
		fb.SubmittedAt = now
	}
	if err := db.Create(fb).Error; err != nil {
		return fmt.Errorf("feedback: ingest: store record: %w", err)
	}
	return nil
}
