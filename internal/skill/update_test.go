package skill

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/kylemckinstry/rostretto/internal/models"
)

var testRoleDims = map[string]string{
	models.RoleManager:  models.DimCustomerService,
	models.RoleBarista:  models.DimCoffee,
	models.RoleWaiter:   models.DimCustomerService,
	models.RoleSandwich: models.DimSandwich,
}

func seedOpenAssignment(t *testing.T, db *gorm.DB, shiftID, workerID uint, role string) {
	t.Helper()
	start := time.Date(2025, 9, 1, 7, 0, 0, 0, time.UTC)
	a := models.Assignment{
		ShiftID: shiftID, WorkerID: workerID, WeekID: "2025-W36", Role: role,
		StartTime: start, EndTime: start.Add(8 * time.Hour), Present: true,
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
}

func seedFeedback(t *testing.T, db *gorm.DB, fb models.Feedback) {
	t.Helper()
	if fb.SubmittedAt.IsZero() {
		fb.SubmittedAt = time.Date(2025, 9, 1, 16, 0, 0, 0, time.UTC)
	}
	if err := db.Create(&fb).Error; err != nil {
		t.Fatalf("seed feedback: %v", err)
	}
}

func TestRuleScorer_MonotonicInRating(t *testing.T) {
	scorer := &RuleScorer{RoleDimension: testRoleDims}
	asgn := &models.Assignment{Role: models.RoleBarista}

	var prev float64 = -1
	for rating := models.MinRating; rating <= models.MaxRating; rating++ {
		fb := &models.Feedback{ID: "fb", Rating: rating, Traffic: models.TrafficNormal}
		points, conf, err := scorer.Score(fb, asgn)
		if err != nil {
			t.Fatalf("score rating %d: %v", rating, err)
		}
		if conf != 1 {
			t.Fatalf("confidence = %.2f, want 1", conf)
		}
		speed := points.Get(models.DimSpeed)
		if speed == nil {
			t.Fatalf("rating %d: no speed observation", rating)
		}
		if *speed <= prev {
			t.Errorf("rating %d: speed %.1f not above rating %d's %.1f", rating, *speed, rating-1, prev)
		}
		prev = *speed
	}
}

func TestRuleScorer_RoleAndTags(t *testing.T) {
	scorer := &RuleScorer{RoleDimension: testRoleDims}
	asgn := &models.Assignment{Role: models.RoleBarista}

	fb := &models.Feedback{ID: "fb", Rating: 4, Traffic: models.TrafficNormal}
	points, _, err := scorer.Score(fb, asgn)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if points.Get(models.DimCoffee) == nil {
		t.Error("barista feedback should observe coffee")
	}
	if points.Get(models.DimSandwich) != nil {
		t.Error("barista feedback without tags should not observe sandwich")
	}
	if *points.Get(models.DimCoffee) <= *points.Get(models.DimCustomerService) {
		t.Errorf("primary dim %.1f should outscore dampened dim %.1f",
			*points.Get(models.DimCoffee), *points.Get(models.DimCustomerService))
	}

	tagged := &models.Feedback{ID: "fb2", Rating: 4, Traffic: models.TrafficNormal, Tags: "sandwich"}
	points2, _, err := scorer.Score(tagged, asgn)
	if err != nil {
		t.Fatalf("score tagged: %v", err)
	}
	if points2.Get(models.DimSandwich) == nil {
		t.Error("sandwich tag should add a sandwich observation")
	}
	if *points2.Get(models.DimCoffee) != *points.Get(models.DimCoffee) {
		t.Error("tagging sandwich should not change the coffee score")
	}
}

func TestRuleScorer_TrafficMultiplier(t *testing.T) {
	scorer := &RuleScorer{RoleDimension: testRoleDims}
	asgn := &models.Assignment{Role: models.RoleBarista}

	score := func(traffic string) float64 {
		fb := &models.Feedback{ID: "fb", Rating: 3, Traffic: traffic}
		points, _, err := scorer.Score(fb, asgn)
		if err != nil {
			t.Fatalf("score %s: %v", traffic, err)
		}
		return *points.Get(models.DimCoffee)
	}
	quiet, normal, busy := score(models.TrafficQuiet), score(models.TrafficNormal), score(models.TrafficBusy)
	if !(quiet < normal && normal < busy) {
		t.Errorf("want quiet < normal < busy, got %.1f, %.1f, %.1f", quiet, normal, busy)
	}
}

func TestUpdate_AppliesAndResolves(t *testing.T) {
	db := testDB(t)
	seedOpenAssignment(t, db, 1, 1, models.RoleBarista)
	seedFeedback(t, db, models.Feedback{ID: "fb1", ShiftID: 1, WorkerID: 1, Rating: 5, Traffic: models.TrafficNormal, Present: true})

	report, err := Update(db, &RuleScorer{RoleDimension: testRoleDims}, Options{ConfidenceThreshold: 0.7})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if report.Updated != 1 || report.Processed != 1 {
		t.Fatalf("report = %+v, want 1 processed, 1 updated", report)
	}

	var asgn models.Assignment
	db.Where("shift_id = ? AND worker_id = ?", 1, 1).First(&asgn)
	if !asgn.Resolved {
		t.Error("assignment not resolved")
	}
	if asgn.CoffeeRating == nil || *asgn.CoffeeRating != 90 {
		t.Errorf("coffee rating = %v, want 90 for rating 5 at normal traffic", asgn.CoffeeRating)
	}
}

func TestUpdate_FillsOnlyOnce(t *testing.T) {
	db := testDB(t)
	seedOpenAssignment(t, db, 1, 1, models.RoleBarista)
	seedFeedback(t, db, models.Feedback{ID: "fb1", ShiftID: 1, WorkerID: 1, Rating: 5, Traffic: models.TrafficNormal, Present: true})

	if _, err := Update(db, &RuleScorer{RoleDimension: testRoleDims}, Options{ConfidenceThreshold: 0.7}); err != nil {
		t.Fatalf("first update: %v", err)
	}
	report, err := Update(db, &RuleScorer{RoleDimension: testRoleDims}, Options{ConfidenceThreshold: 0.7})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if report.Updated != 0 {
		t.Errorf("second run updated %d assignments, want 0", report.Updated)
	}
}

func TestUpdate_SupersededFeedbackWins(t *testing.T) {
	db := testDB(t)
	seedOpenAssignment(t, db, 1, 1, models.RoleBarista)
	first := "fb1"
	seedFeedback(t, db, models.Feedback{
		ID: first, ShiftID: 1, WorkerID: 1, Rating: 1, Traffic: models.TrafficNormal, Present: true,
		SubmittedAt: time.Date(2025, 9, 1, 16, 0, 0, 0, time.UTC),
	})
	seedFeedback(t, db, models.Feedback{
		ID: "fb2", ShiftID: 1, WorkerID: 1, Rating: 5, Traffic: models.TrafficNormal, Present: true,
		SupersedesID: &first,
		SubmittedAt:  time.Date(2025, 9, 1, 17, 0, 0, 0, time.UTC),
	})

	if _, err := Update(db, &RuleScorer{RoleDimension: testRoleDims}, Options{ConfidenceThreshold: 0.7}); err != nil {
		t.Fatalf("update: %v", err)
	}
	var asgn models.Assignment
	db.Where("shift_id = ? AND worker_id = ?", 1, 1).First(&asgn)
	if asgn.CoffeeRating == nil || *asgn.CoffeeRating != 90 {
		t.Errorf("coffee rating = %v, want 90 from the superseding record", asgn.CoffeeRating)
	}
}

func TestUpdate_AbsenceResolvesWithoutPoints(t *testing.T) {
	db := testDB(t)
	seedOpenAssignment(t, db, 1, 1, models.RoleBarista)
	seedFeedback(t, db, models.Feedback{ID: "fb1", ShiftID: 1, WorkerID: 1, Rating: 1, Traffic: models.TrafficQuiet, Present: false})

	report, err := Update(db, &RuleScorer{RoleDimension: testRoleDims}, Options{ConfidenceThreshold: 0.7})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if report.Absences != 1 {
		t.Fatalf("report = %+v, want 1 absence", report)
	}
	var asgn models.Assignment
	db.Where("shift_id = ? AND worker_id = ?", 1, 1).First(&asgn)
	if !asgn.Resolved || asgn.Present {
		t.Errorf("resolved=%v present=%v, want resolved absent", asgn.Resolved, asgn.Present)
	}
	if asgn.CoffeeRating != nil || asgn.SpeedRating != nil {
		t.Error("absence must not record skill points")
	}
}

func TestUpdate_SkipsOrphanFeedback(t *testing.T) {
	db := testDB(t)
	seedFeedback(t, db, models.Feedback{ID: "fb1", ShiftID: 42, WorkerID: 9, Rating: 3, Traffic: models.TrafficNormal, Present: true})

	report, err := Update(db, &RuleScorer{RoleDimension: testRoleDims}, Options{ConfidenceThreshold: 0.7})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if report.Skipped != 1 || report.Updated != 0 {
		t.Errorf("report = %+v, want 1 skipped", report)
	}
}

// failingShiftScorer errors on one shift and delegates the rest to the rule
// scorer.
type failingShiftScorer struct {
	failShift uint
	rule      RuleScorer
}

func (s *failingShiftScorer) Score(fb *models.Feedback, asgn *models.Assignment) (models.SkillPoints, float64, error) {
	if asgn.ShiftID == s.failShift {
		return models.SkillPoints{}, 0, errors.New("predictor backend down")
	}
	return s.rule.Score(fb, asgn)
}

func TestUpdate_ScorerErrorDoesNotBlockBatch(t *testing.T) {
	db := testDB(t)
	seedOpenAssignment(t, db, 1, 1, models.RoleBarista)
	seedOpenAssignment(t, db, 2, 2, models.RoleBarista)
	seedFeedback(t, db, models.Feedback{ID: "fb1", ShiftID: 1, WorkerID: 1, Rating: 4, Traffic: models.TrafficNormal, Present: true})
	seedFeedback(t, db, models.Feedback{ID: "fb2", ShiftID: 2, WorkerID: 2, Rating: 4, Traffic: models.TrafficNormal, Present: true})

	scorer := &failingShiftScorer{failShift: 1, rule: RuleScorer{RoleDimension: testRoleDims}}
	report, err := Update(db, scorer, Options{ConfidenceThreshold: 0.7})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if report.Processed != 2 || report.Errors != 1 || report.Updated != 1 {
		t.Errorf("report = %+v, want 2 processed, 1 error, 1 updated", report)
	}

	var first, second models.Assignment
	db.Where("shift_id = ? AND worker_id = ?", 1, 1).First(&first)
	if first.Resolved {
		t.Error("assignment with the failing score must stay unresolved")
	}
	db.Where("shift_id = ? AND worker_id = ?", 2, 2).First(&second)
	if !second.Resolved {
		t.Error("assignment after the failing score was not processed")
	}
}

func TestUpdate_LowConfidenceFlagsForReview(t *testing.T) {
	db := testDB(t)
	seedOpenAssignment(t, db, 1, 1, models.RoleBarista)
	seedFeedback(t, db, models.Feedback{ID: "fb1", ShiftID: 1, WorkerID: 1, Rating: 4, Traffic: models.TrafficNormal, Present: true})

	// Manual scorer without values: zero confidence.
	report, err := Update(db, &ManualScorer{}, Options{ConfidenceThreshold: 0.7})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if report.Flagged != 1 {
		t.Fatalf("report = %+v, want 1 flagged", report)
	}
	var asgn models.Assignment
	db.Where("shift_id = ? AND worker_id = ?", 1, 1).First(&asgn)
	if !asgn.ReviewFlag || asgn.Resolved {
		t.Errorf("reviewFlag=%v resolved=%v, want flagged unresolved", asgn.ReviewFlag, asgn.Resolved)
	}

	// Operator supplies the values: flag clears, assignment resolves.
	values := models.SkillPoints{}
	values.Set(models.DimCoffee, 75)
	report, err = Update(db, &ManualScorer{Values: map[string]models.SkillPoints{"fb1": values}}, Options{ConfidenceThreshold: 0.7})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if report.Updated != 1 {
		t.Fatalf("report = %+v, want 1 updated", report)
	}
	db.Where("shift_id = ? AND worker_id = ?", 1, 1).First(&asgn)
	if asgn.ReviewFlag || !asgn.Resolved {
		t.Errorf("reviewFlag=%v resolved=%v, want resolved with flag cleared", asgn.ReviewFlag, asgn.Resolved)
	}
}

func TestNewScorer(t *testing.T) {
	if _, err := NewScorer("rule", testRoleDims, nil); err != nil {
		t.Errorf("rule: %v", err)
	}
	if _, err := NewScorer("manual", nil, nil); err != nil {
		t.Errorf("manual: %v", err)
	}
	if _, err := NewScorer("predictor", nil, nil); err == nil {
		t.Error("predictor without implementation should fail")
	}
	if _, err := NewScorer("bogus", nil, nil); err == nil {
		t.Error("unknown strategy should fail")
	}
}
