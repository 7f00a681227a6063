package roster

import (
	"context"
	"reflect"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kylemckinstry/rostretto/internal/models"
)

func testPolicy() Policy {
	return Policy{
		MaxPerDay:        1,
		SkillMatchWeight: 1.0,
		FairnessWeight:   0.3,
		BelowTargetRate:  0.5,
		AboveTargetRate:  0.75,
		RoleDimension: map[string]string{
			models.RoleManager:  models.DimCustomerService,
			models.RoleBarista:  models.DimCoffee,
			models.RoleWaiter:   models.DimCustomerService,
			models.RoleSandwich: models.DimSandwich,
		},
	}
}

func barista(id uint, coffee float64) models.Worker {
	return models.Worker{
		ID:             id,
		Roles:          models.RoleBarista,
		SkillCoffee:    coffee,
		TargetMaxHours: 40,
	}
}

func slot(id uint, date, role, start, end string, headcount int) models.ShiftSlot {
	return models.ShiftSlot{
		ID: id, Date: date, WeekID: "2025-W36", Role: role,
		StartTime: start, EndTime: end, Headcount: headcount,
	}
}

func solve(t *testing.T, slots []models.ShiftSlot, workers []models.Worker, policy Policy) *Solution {
	t.Helper()
	sol, err := BuildAndSolve(context.Background(), slots, workers, policy, time.Second)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	return sol
}

func TestSolve_PicksStrongerWorker(t *testing.T) {
	slots := []models.ShiftSlot{slot(1, "2025-09-01", models.RoleBarista, "07:00", "15:00", 1)}
	workers := []models.Worker{barista(1, 60), barista(2, 80)}

	sol := solve(t, slots, workers, testPolicy())
	if sol.Status != StatusOptimal {
		t.Fatalf("status = %s, want optimal", sol.Status)
	}
	if len(sol.Pairs) != 1 || sol.Pairs[0].WorkerID != 2 {
		t.Errorf("pairs = %v, want worker 2 on slot 1", sol.Pairs)
	}
}

func TestSolve_CoversExactHeadcount(t *testing.T) {
	slots := []models.ShiftSlot{slot(1, "2025-09-01", models.RoleBarista, "07:00", "15:00", 2)}
	workers := []models.Worker{barista(1, 60), barista(2, 80), barista(3, 70)}

	sol := solve(t, slots, workers, testPolicy())
	if len(sol.Pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(sol.Pairs))
	}
	seen := map[uint]bool{}
	for _, p := range sol.Pairs {
		if seen[p.WorkerID] {
			t.Errorf("worker %d assigned twice to one slot", p.WorkerID)
		}
		seen[p.WorkerID] = true
	}
}

func TestSolve_OneAssignmentPerDay(t *testing.T) {
	slots := []models.ShiftSlot{
		slot(1, "2025-09-01", models.RoleBarista, "07:00", "11:00", 1),
		slot(2, "2025-09-01", models.RoleBarista, "11:00", "15:00", 1),
	}
	workers := []models.Worker{barista(1, 60), barista(2, 80)}

	sol := solve(t, slots, workers, testPolicy())
	if sol.Status != StatusOptimal {
		t.Fatalf("status = %s, want optimal", sol.Status)
	}
	if sol.Pairs[0].WorkerID == sol.Pairs[1].WorkerID {
		t.Errorf("worker %d took both slots on one day with max_per_day=1", sol.Pairs[0].WorkerID)
	}
}

func TestSolve_RaisedDayCapAllowsDoubleShift(t *testing.T) {
	// Three waiter slots, two waiters: someone has to take two.
	slots := []models.ShiftSlot{
		slot(1, "2025-09-01", models.RoleWaiter, "07:00", "11:00", 1),
		slot(2, "2025-09-01", models.RoleWaiter, "11:00", "15:00", 1),
		slot(3, "2025-09-01", models.RoleWaiter, "15:00", "19:00", 1),
	}
	workers := []models.Worker{
		{ID: 1, Roles: models.RoleWaiter, SkillCustomerService: 70, TargetMaxHours: 40},
		{ID: 2, Roles: models.RoleWaiter, SkillCustomerService: 50, TargetMaxHours: 40},
	}

	policy := testPolicy()
	sol := solve(t, slots, workers, policy)
	if sol.Status != StatusInfeasible {
		t.Fatalf("status = %s, want infeasible with max_per_day=1", sol.Status)
	}
	if sol.Diagnostic == nil || sol.Diagnostic.Class != DiagDayCapacity {
		t.Fatalf("diagnostic = %v, want class %s", sol.Diagnostic, DiagDayCapacity)
	}

	policy.MaxPerDay = 3
	sol = solve(t, slots, workers, policy)
	if sol.Status != StatusOptimal {
		t.Fatalf("status = %s, want optimal with max_per_day=3", sol.Status)
	}
	if len(sol.Pairs) != 3 {
		t.Fatalf("got %d pairs, want 3", len(sol.Pairs))
	}
	counts := map[uint]int{}
	for _, p := range sol.Pairs {
		counts[p.WorkerID]++
	}
	if counts[1] < 2 {
		t.Errorf("stronger waiter took %d of 3 slots, want at least 2", counts[1])
	}
	for id, n := range counts {
		if h := float64(n) * 4; h > 40 {
			t.Errorf("worker %d assigned %.0f hours, cap is 40", id, h)
		}
	}
}

func TestSolve_ZeroEligibleDiagnostic(t *testing.T) {
	slots := []models.ShiftSlot{
		slot(1, "2025-09-01", models.RoleBarista, "07:00", "15:00", 1),
		slot(2, "2025-09-02", models.RoleManager, "07:00", "15:00", 1),
	}
	workers := []models.Worker{barista(1, 60)}

	sol := solve(t, slots, workers, testPolicy())
	if sol.Status != StatusInfeasible {
		t.Fatalf("status = %s, want infeasible", sol.Status)
	}
	d := sol.Diagnostic
	if d == nil || d.Class != DiagZeroEligible {
		t.Fatalf("diagnostic = %v, want class %s", d, DiagZeroEligible)
	}
	if d.SlotID != 2 || d.Role != models.RoleManager {
		t.Errorf("diagnostic cites slot %d role %s, want slot 2 role MANAGER", d.SlotID, d.Role)
	}
}

func TestSolve_Deterministic(t *testing.T) {
	slots := []models.ShiftSlot{
		slot(1, "2025-09-01", models.RoleBarista, "07:00", "15:00", 1),
		slot(2, "2025-09-02", models.RoleBarista, "07:00", "15:00", 1),
		slot(3, "2025-09-03", models.RoleBarista, "07:00", "15:00", 1),
	}
	// Equal skills: the tie must break the same way every run.
	workers := []models.Worker{barista(3, 50), barista(1, 50), barista(2, 50)}

	first := solve(t, slots, workers, testPolicy())
	for i := 0; i < 5; i++ {
		again := solve(t, slots, workers, testPolicy())
		if !reflect.DeepEqual(first.Pairs, again.Pairs) {
			t.Fatalf("run %d produced %v, first run produced %v", i, again.Pairs, first.Pairs)
		}
	}
}

func TestSolve_FairnessSpreadsHours(t *testing.T) {
	// Two identical baristas with a 8-16h band and two single-shift days:
	// splitting the work avoids one below-target penalty.
	slots := []models.ShiftSlot{
		slot(1, "2025-09-01", models.RoleBarista, "07:00", "15:00", 1),
		slot(2, "2025-09-02", models.RoleBarista, "07:00", "15:00", 1),
	}
	workers := []models.Worker{
		{ID: 1, Roles: models.RoleBarista, SkillCoffee: 50, TargetMinHours: 8, TargetMaxHours: 16},
		{ID: 2, Roles: models.RoleBarista, SkillCoffee: 50, TargetMinHours: 8, TargetMaxHours: 16},
	}

	sol := solve(t, slots, workers, testPolicy())
	if sol.Pairs[0].WorkerID == sol.Pairs[1].WorkerID {
		t.Errorf("one worker took both shifts; fairness should spread them")
	}
}

func TestBuild_RejectsMalformedInput(t *testing.T) {
	workers := []models.Worker{barista(1, 50)}

	if _, err := Build(nil, workers, testPolicy()); err == nil {
		t.Error("expected error for empty slots")
	}
	bad := []models.ShiftSlot{slot(1, "2025-09-01", models.RoleBarista, "07:00", "15:00", 0)}
	if _, err := Build(bad, workers, testPolicy()); err == nil {
		t.Error("expected error for zero headcount")
	}
	inverted := []models.ShiftSlot{slot(1, "2025-09-01", models.RoleBarista, "15:00", "07:00", 1)}
	if _, err := Build(inverted, workers, testPolicy()); err == nil {
		t.Error("expected error for inverted window")
	}
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Assignment{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func TestExportAndSaveWeek_Idempotent(t *testing.T) {
	slots := []models.ShiftSlot{slot(1, "2025-09-01", models.RoleBarista, "07:00", "15:00", 1)}
	workers := []models.Worker{barista(1, 60)}
	sol := solve(t, slots, workers, testPolicy())

	records, err := Export(sol, slots, time.UTC)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.ShiftID != 1 || r.WorkerID != 1 || r.Role != models.RoleBarista || !r.Present {
		t.Errorf("record = %+v", r)
	}
	if got := r.EndTime.Sub(r.StartTime).Hours(); got != 8 {
		t.Errorf("duration = %.1f hours, want 8", got)
	}

	db := testDB(t)
	for i := 0; i < 2; i++ {
		if err := SaveWeek(db, "2025-W36", records); err != nil {
			t.Fatalf("save week (run %d): %v", i, err)
		}
	}
	var count int64
	db.Model(&models.Assignment{}).Count(&count)
	if count != 1 {
		t.Errorf("stored %d assignments after two saves, want 1", count)
	}
}

func TestExport_RejectsInfeasible(t *testing.T) {
	sol := &Solution{Status: StatusInfeasible}
	if _, err := Export(sol, nil, time.UTC); err == nil {
		t.Error("expected error exporting infeasible solution")
	}
}
