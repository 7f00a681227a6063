package cycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kylemckinstry/rostretto/internal/models"
	"github.com/kylemckinstry/rostretto/internal/skill"
	"github.com/kylemckinstry/rostretto/internal/timeplan"
)

const defaultPollInterval = 30 * time.Second

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time after now. Returns 0 on parse error.
func nextCronDuration(expr string, now time.Time) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RunDaemon runs the cycle loop until ctx is cancelled: each poll it makes
// sure the upcoming week has a generated schedule, and on the configured cron
// it folds accumulated feedback back into skill vectors. Per-iteration errors
// are logged so one bad week cannot stop the loop.
func (o *Orchestrator) RunDaemon(ctx context.Context, scorer skill.Scorer) error {
	poll := o.Cfg.DaemonPollInterval()
	if poll <= 0 {
		poll = defaultPollInterval
	}
	fmt.Fprintf(o.out(), "cycle daemon starting (poll every %s, skill update at %q)\n",
		poll, o.Cfg.Daemon.UpdateCron)

	// A nil channel blocks forever, so a cron expression that never parses
	// leaves updates disabled instead of firing in a tight loop.
	var updateTimer *time.Timer
	var updateC <-chan time.Time
	if d := nextCronDuration(o.Cfg.Daemon.UpdateCron, o.now()); d > 0 {
		updateTimer = time.NewTimer(d)
		defer updateTimer.Stop()
		updateC = updateTimer.C
	} else {
		fmt.Fprintf(o.out(), "update_cron %q is invalid, skill updates disabled\n", o.Cfg.Daemon.UpdateCron)
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	// Generate immediately on startup rather than waiting a full poll.
	o.generateUpcoming(ctx)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(o.out(), "cycle daemon stopped\n")
			return nil
		case <-ticker.C:
			o.generateUpcoming(ctx)
		case <-updateC:
			if report, err := o.RunSkillUpdate(ctx, scorer); err != nil {
				log.Printf("cycle: skill update error: %v", err)
			} else {
				fmt.Fprintf(o.out(), "skill update: %d applied, %d absences, %d flagged, %d skipped, %d errors\n",
					report.Updated, report.Absences, report.Flagged, report.Skipped, report.Errors)
			}
			if d := nextCronDuration(o.Cfg.Daemon.UpdateCron, o.now()); d > 0 {
				updateTimer.Reset(d)
			}
		}
	}
}

// generateUpcoming runs generation for next week unless its period already
// advanced past the solve. Infeasible weeks are retried each poll so a staff
// change can unblock them.
func (o *Orchestrator) generateUpcoming(ctx context.Context) {
	weekID := timeplan.WeekID(o.now().In(o.Cfg.Location()).AddDate(0, 0, 7))

	var period models.Period
	err := o.DB.Where("week_id = ?", weekID).First(&period).Error
	if err == nil && period.Stage != models.StageInfeasible {
		switch period.Stage {
		case models.StageAwaitFeedback, models.StageUpdateSkills, models.StageComplete:
			return
		}
	}
	if _, err := o.RunGeneration(ctx, weekID); err != nil {
		log.Printf("cycle: generation for %s: %v", weekID, err)
	}
}
