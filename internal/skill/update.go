package skill

import (
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/kylemckinstry/rostretto/internal/models"
)

// Options tunes one updater run.
type Options struct {
	// ConfidenceThreshold gates automatic application: scores below it flag
	// the assignment for review instead of resolving it.
	ConfidenceThreshold float64
	// Out receives per-record skip and flag notes. Defaults to io.Discard.
	Out io.Writer
}

// Report summarizes an updater run.
type Report struct {
	Processed int `json:"processed"` // (shift, worker) pairs considered
	Updated   int `json:"updated"`   // skill points applied, assignment resolved
	Absences  int `json:"absences"`  // resolved as absent, no skill points
	Flagged   int `json:"flagged"`   // held for manual review
	Skipped   int `json:"skipped"`   // feedback without a matching assignment
	Errors    int `json:"errors"`    // scorer failures, assignment left unresolved
}

// Update applies scored feedback to unresolved assignments. For every
// (shift, worker) pair it takes the newest feedback record that nothing
// supersedes; earlier records for the pair are left untouched as history.
// An assignment is filled at most once. Feedback whose assignment does not
// exist, or whose scoring fails, is counted and reported, never fatal to the
// batch; only storage failures abort the run.
func Update(db *gorm.DB, scorer Scorer, opts Options) (*Report, error) {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	var records []models.Feedback
	if err := db.Order("submitted_at, id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("skill: update: load feedback: %w", err)
	}
	superseded := make(map[string]bool)
	for i := range records {
		if records[i].SupersedesID != nil {
			superseded[*records[i].SupersedesID] = true
		}
	}

	type pair struct{ shift, worker uint }
	effective := make(map[pair]*models.Feedback)
	var order []pair
	for i := range records {
		fb := &records[i]
		if superseded[fb.ID] {
			continue
		}
		p := pair{fb.ShiftID, fb.WorkerID}
		if _, seen := effective[p]; !seen {
			order = append(order, p)
		}
		// Records arrive oldest first, so the last write wins the pair.
		effective[p] = fb
	}

	report := &Report{}
	for _, p := range order {
		fb := effective[p]
		report.Processed++

		var asgn models.Assignment
		err := db.Where("shift_id = ? AND worker_id = ?", p.shift, p.worker).First(&asgn).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			report.Skipped++
			fmt.Fprintf(out, "skipping feedback %s: no assignment for shift %d worker %d\n", fb.ID, p.shift, p.worker)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("skill: update: load assignment %d/%d: %w", p.shift, p.worker, err)
		}
		if asgn.Resolved {
			continue
		}

		if !fb.Present {
			asgn.Present = false
			asgn.Resolved = true
			asgn.ReviewFlag = false
			if err := db.Save(&asgn).Error; err != nil {
				return report, fmt.Errorf("skill: update: resolve absence %d/%d: %w", p.shift, p.worker, err)
			}
			report.Absences++
			continue
		}

		points, conf, err := scorer.Score(fb, &asgn)
		if err != nil {
			report.Errors++
			fmt.Fprintf(out, "scoring feedback %s for shift %d worker %d failed: %v\n", fb.ID, p.shift, p.worker, err)
			continue
		}
		if conf < opts.ConfidenceThreshold || points.Empty() {
			if !asgn.ReviewFlag {
				asgn.ReviewFlag = true
				if err := db.Save(&asgn).Error; err != nil {
					return report, fmt.Errorf("skill: update: flag %d/%d: %w", p.shift, p.worker, err)
				}
			}
			report.Flagged++
			fmt.Fprintf(out, "flagging shift %d worker %d for review (confidence %.2f)\n", p.shift, p.worker, conf)
			continue
		}

		asgn.FillSkillPoints(points)
		asgn.ReviewFlag = false
		if err := db.Save(&asgn).Error; err != nil {
			return report, fmt.Errorf("skill: update: fill %d/%d: %w", p.shift, p.worker, err)
		}
		report.Updated++
	}
	return report, nil
}
