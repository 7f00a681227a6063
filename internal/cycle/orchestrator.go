// Package cycle drives the closed loop: aggregate skills, build and solve the
// week's model, export the schedule, then fold feedback back into skills.
package cycle

import (
	"context"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/kylemckinstry/rostretto/internal/config"
	"github.com/kylemckinstry/rostretto/internal/models"
	"github.com/kylemckinstry/rostretto/internal/notify"
	"github.com/kylemckinstry/rostretto/internal/roster"
	"github.com/kylemckinstry/rostretto/internal/skill"
	"github.com/kylemckinstry/rostretto/internal/timeplan"
)

// Orchestrator sequences the scheduling cycle for one store, persisting the
// stage after every transition so a restart resumes where it stopped.
type Orchestrator struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Out      io.Writer
	Notifier *notify.Notifier

	// Now overrides the clock in tests.
	Now func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) out() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return io.Discard
}

// setStage persists a period stage transition.
func (o *Orchestrator) setStage(p *models.Period, stage string) error {
	p.Stage = stage
	if err := o.DB.Save(p).Error; err != nil {
		return fmt.Errorf("cycle: store stage %s for %s: %w", stage, p.WeekID, err)
	}
	fmt.Fprintf(o.out(), "week %s: %s\n", p.WeekID, stage)
	return nil
}

// RunGeneration runs the forward half of the cycle for weekID: aggregate
// worker skills, materialize slots if the week has none, build and solve the
// model, and export the schedule. An infeasible model halts the cycle with
// the diagnostic recorded on the period and a notification sent.
func (o *Orchestrator) RunGeneration(ctx context.Context, weekID string) (*models.Period, error) {
	if _, err := timeplan.ParseWeekID(weekID, o.Cfg.Location()); err != nil {
		return nil, fmt.Errorf("cycle: %w", err)
	}

	period := &models.Period{WeekID: weekID, Stage: models.StageAggregate, StartedAt: o.now()}
	if err := o.DB.Where("week_id = ?", weekID).FirstOrCreate(period).Error; err != nil {
		return nil, fmt.Errorf("cycle: open period %s: %w", weekID, err)
	}
	if err := o.setStage(period, models.StageAggregate); err != nil {
		return period, err
	}

	n, err := skill.AggregateAll(o.DB, o.Cfg.Skills.Window, o.Cfg.Skills.NeutralDefault, o.now())
	if err != nil {
		return period, fmt.Errorf("cycle: aggregate skills: %w", err)
	}
	fmt.Fprintf(o.out(), "week %s: aggregated %d skill vectors\n", weekID, n)

	if err := o.setStage(period, models.StageBuild); err != nil {
		return period, err
	}
	slots, err := o.weekSlots(weekID)
	if err != nil {
		return period, err
	}
	var workers []models.Worker
	if err := o.DB.Order("id").Find(&workers).Error; err != nil {
		return period, fmt.Errorf("cycle: load workers: %w", err)
	}
	model, err := roster.Build(slots, workers, roster.PolicyFromConfig(o.Cfg))
	if err != nil {
		return period, fmt.Errorf("cycle: %w", err)
	}

	if err := o.setStage(period, models.StageSolve); err != nil {
		return period, err
	}
	sol, err := roster.Solve(ctx, model, o.Cfg.SolveBudget())
	if err != nil {
		return period, fmt.Errorf("cycle: %w", err)
	}
	period.SolveStatus = string(sol.Status)
	period.Diagnostic = ""
	if sol.Status == roster.StatusInfeasible {
		period.Diagnostic = sol.Diagnostic.String()
		if err := o.setStage(period, models.StageInfeasible); err != nil {
			return period, err
		}
		o.notify(weekID, fmt.Sprintf("week %s is infeasible: %s", weekID, period.Diagnostic))
		return period, nil
	}

	if err := o.setStage(period, models.StageExport); err != nil {
		return period, err
	}
	records, err := roster.Export(sol, slots, o.Cfg.Location())
	if err != nil {
		return period, fmt.Errorf("cycle: %w", err)
	}
	if err := roster.SaveWeek(o.DB, weekID, records); err != nil {
		return period, fmt.Errorf("cycle: %w", err)
	}
	fmt.Fprintf(o.out(), "week %s: exported %d assignments (%s, objective %.3f)\n",
		weekID, len(records), sol.Status, sol.Objective)

	if err := o.setStage(period, models.StageAwaitFeedback); err != nil {
		return period, err
	}
	o.notify(weekID, fmt.Sprintf("week %s schedule published: %d assignments (%s)", weekID, len(records), sol.Status))
	return period, nil
}

// RunSkillUpdate runs the return half of the cycle: apply scored feedback to
// assignments, then re-aggregate every worker's skill vector. Periods left in
// await_feedback whose week has fully resolved advance to complete.
func (o *Orchestrator) RunSkillUpdate(ctx context.Context, scorer skill.Scorer) (*skill.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report, err := skill.Update(o.DB, scorer, skill.Options{
		ConfidenceThreshold: o.Cfg.Scoring.ConfidenceThreshold,
		Out:                 o.out(),
	})
	if err != nil {
		return report, fmt.Errorf("cycle: %w", err)
	}
	if report.Flagged > 0 {
		o.notify("", fmt.Sprintf("%d assignment(s) held for manual skill review", report.Flagged))
	}
	if _, err := skill.AggregateAll(o.DB, o.Cfg.Skills.Window, o.Cfg.Skills.NeutralDefault, o.now()); err != nil {
		return report, fmt.Errorf("cycle: %w", err)
	}
	if err := o.closeResolvedPeriods(); err != nil {
		return report, err
	}
	return report, nil
}

// closeResolvedPeriods completes every awaiting period whose assignments have
// all been resolved.
func (o *Orchestrator) closeResolvedPeriods() error {
	var waiting []models.Period
	if err := o.DB.Where("stage = ?", models.StageAwaitFeedback).Find(&waiting).Error; err != nil {
		return fmt.Errorf("cycle: load awaiting periods: %w", err)
	}
	for i := range waiting {
		var open int64
		err := o.DB.Model(&models.Assignment{}).
			Where("week_id = ? AND resolved = ?", waiting[i].WeekID, false).
			Count(&open).Error
		if err != nil {
			return fmt.Errorf("cycle: count open assignments for %s: %w", waiting[i].WeekID, err)
		}
		if open > 0 {
			continue
		}
		if err := o.setStage(&waiting[i], models.StageUpdateSkills); err != nil {
			return err
		}
		if err := o.setStage(&waiting[i], models.StageComplete); err != nil {
			return err
		}
	}
	return nil
}

// weekSlots loads the week's stored slots, materializing them from
// configuration on first use.
func (o *Orchestrator) weekSlots(weekID string) ([]models.ShiftSlot, error) {
	var slots []models.ShiftSlot
	if err := o.DB.Where("week_id = ?", weekID).Order("date, start_time, id").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("cycle: load slots for %s: %w", weekID, err)
	}
	if len(slots) > 0 {
		return slots, nil
	}
	built, err := timeplan.BuildWeekSlots(o.Cfg, weekID)
	if err != nil {
		return nil, fmt.Errorf("cycle: %w", err)
	}
	if err := o.DB.Create(&built).Error; err != nil {
		return nil, fmt.Errorf("cycle: store slots for %s: %w", weekID, err)
	}
	fmt.Fprintf(o.out(), "week %s: materialized %d shift slots\n", weekID, len(built))
	return built, nil
}

func (o *Orchestrator) notify(weekID, text string) {
	if o.Notifier == nil {
		return
	}
	o.Notifier.Send(notify.Event{WeekID: weekID, Text: text})
}
