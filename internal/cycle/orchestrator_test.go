package cycle

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kylemckinstry/rostretto/internal/config"
	"github.com/kylemckinstry/rostretto/internal/db"
	"github.com/kylemckinstry/rostretto/internal/feedback"
	"github.com/kylemckinstry/rostretto/internal/models"
	"github.com/kylemckinstry/rostretto/internal/skill"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

// testConfig shrinks the roster to one barista slot per day so solves stay
// tiny.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
timezone: UTC
role_time_windows: {}
requirements:
  weekday:
    BARISTA: 1
  weekend:
    BARISTA: 1
solver:
  budget: 5s
`))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func seedBaristas(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	workers := []models.Worker{
		{ID: 1, FirstName: "Ada", Roles: models.RoleBarista, SkillCoffee: 70, TargetMinHours: 16, TargetMaxHours: 32},
		{ID: 2, FirstName: "Ben", Roles: models.RoleBarista, SkillCoffee: 60, TargetMinHours: 16, TargetMaxHours: 32},
	}
	if err := gdb.Create(&workers).Error; err != nil {
		t.Fatalf("seed workers: %v", err)
	}
}

func testOrchestrator(gdb *gorm.DB, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		DB:  gdb,
		Cfg: cfg,
		Out: &bytes.Buffer{},
		Now: func() time.Time { return time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC) },
	}
}

func TestRunGeneration_FullForwardPass(t *testing.T) {
	gdb := testDB(t)
	cfg := testConfig(t)
	seedBaristas(t, gdb)
	orch := testOrchestrator(gdb, cfg)

	period, err := orch.RunGeneration(context.Background(), "2025-W36")
	if err != nil {
		t.Fatalf("run generation: %v", err)
	}
	if period.Stage != models.StageAwaitFeedback {
		t.Fatalf("stage = %s, want %s", period.Stage, models.StageAwaitFeedback)
	}
	if period.SolveStatus != "optimal" {
		t.Errorf("solve status = %s, want optimal", period.SolveStatus)
	}

	var slots, assignments int64
	gdb.Model(&models.ShiftSlot{}).Where("week_id = ?", "2025-W36").Count(&slots)
	gdb.Model(&models.Assignment{}).Where("week_id = ?", "2025-W36").Count(&assignments)
	if slots != 7 {
		t.Errorf("materialized %d slots, want 7", slots)
	}
	if assignments != 7 {
		t.Errorf("stored %d assignments, want 7", assignments)
	}

	// The persisted period is loadable and re-running is idempotent.
	again, err := orch.RunGeneration(context.Background(), "2025-W36")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.Stage != models.StageAwaitFeedback {
		t.Errorf("second run stage = %s", again.Stage)
	}
	gdb.Model(&models.Assignment{}).Where("week_id = ?", "2025-W36").Count(&assignments)
	if assignments != 7 {
		t.Errorf("after re-run %d assignments, want 7", assignments)
	}
}

func TestRunGeneration_InfeasibleHaltsWithDiagnostic(t *testing.T) {
	gdb := testDB(t)
	cfg := testConfig(t)
	cfg.Requirements.Weekday = map[string]int{"MANAGER": 1}
	cfg.Requirements.Weekend = map[string]int{"MANAGER": 1}
	seedBaristas(t, gdb) // nobody holds MANAGER
	orch := testOrchestrator(gdb, cfg)

	period, err := orch.RunGeneration(context.Background(), "2025-W36")
	if err != nil {
		t.Fatalf("run generation: %v", err)
	}
	if period.Stage != models.StageInfeasible {
		t.Fatalf("stage = %s, want infeasible", period.Stage)
	}
	if period.Diagnostic == "" {
		t.Error("no diagnostic recorded")
	}

	var assignments int64
	gdb.Model(&models.Assignment{}).Count(&assignments)
	if assignments != 0 {
		t.Errorf("infeasible week stored %d assignments, want 0", assignments)
	}
}

func TestRunGeneration_RejectsBadWeekID(t *testing.T) {
	gdb := testDB(t)
	orch := testOrchestrator(gdb, testConfig(t))
	if _, err := orch.RunGeneration(context.Background(), "week-thirty-six"); err == nil {
		t.Error("expected error for malformed week id")
	}
}

func TestRunSkillUpdate_ClosesTheLoop(t *testing.T) {
	gdb := testDB(t)
	cfg := testConfig(t)
	seedBaristas(t, gdb)
	orch := testOrchestrator(gdb, cfg)

	if _, err := orch.RunGeneration(context.Background(), "2025-W36"); err != nil {
		t.Fatalf("run generation: %v", err)
	}

	// File feedback for every assignment after its shift.
	var assignments []models.Assignment
	gdb.Find(&assignments)
	after := time.Date(2025, 9, 8, 12, 0, 0, 0, time.UTC)
	for _, a := range assignments {
		fb := &models.Feedback{
			ShiftID: a.ShiftID, WorkerID: a.WorkerID,
			Rating: 5, Traffic: models.TrafficBusy, Present: true,
		}
		if err := feedback.Ingest(gdb, fb, after); err != nil {
			t.Fatalf("ingest feedback for shift %d: %v", a.ShiftID, err)
		}
	}

	scorer := &skill.RuleScorer{RoleDimension: cfg.Skills.RoleDimension}
	report, err := orch.RunSkillUpdate(context.Background(), scorer)
	if err != nil {
		t.Fatalf("run skill update: %v", err)
	}
	if report.Updated != len(assignments) {
		t.Errorf("updated %d, want %d", report.Updated, len(assignments))
	}

	var period models.Period
	gdb.Where("week_id = ?", "2025-W36").First(&period)
	if period.Stage != models.StageComplete {
		t.Errorf("period stage = %s, want complete", period.Stage)
	}

	// Strong busy-shift feedback must pull coffee above the prior skill.
	var w models.Worker
	gdb.First(&w, 1)
	if w.SkillCoffee <= 70 {
		t.Errorf("worker 1 coffee = %.1f, want above the prior 70", w.SkillCoffee)
	}
}

func TestNextCronDuration(t *testing.T) {
	now := time.Date(2025, 9, 1, 1, 0, 0, 0, time.UTC)
	d := nextCronDuration("30 2 * * *", now)
	if d != 90*time.Minute {
		t.Errorf("duration = %v, want 90m", d)
	}
	if got := nextCronDuration("not a cron expr", now); got != 0 {
		t.Errorf("bad expr duration = %v, want 0", got)
	}
}

func TestRunDaemon_InvalidCronDisablesUpdates(t *testing.T) {
	gdb := testDB(t)
	seedBaristas(t, gdb)
	cfg := testConfig(t)
	// Bypasses config validation the way a hand-built Config would.
	cfg.Daemon.UpdateCron = "not a cron expr"
	cfg.Daemon.PollInterval = "1h"
	orch := testOrchestrator(gdb, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	scorer := &skill.RuleScorer{RoleDimension: cfg.Skills.RoleDimension}
	if err := orch.RunDaemon(ctx, scorer); err != nil {
		t.Fatalf("daemon: %v", err)
	}

	out := orch.Out.(*bytes.Buffer).String()
	if !strings.Contains(out, "skill updates disabled") {
		t.Errorf("output missing disabled notice:\n%s", out)
	}
	if strings.Contains(out, "skill update:") {
		t.Errorf("skill update ran despite an invalid cron:\n%s", out)
	}
}
