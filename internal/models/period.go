package models

import "time"

// Scheduling period stages. A period advances through the cycle
// aggregate → build → solve → export → await_feedback → update_skills →
// complete, or stops at infeasible with a diagnostic.
const (
	StageAggregate     = "aggregate"
	StageBuild         = "build"
	StageSolve         = "solve"
	StageExport        = "export"
	StageAwaitFeedback = "await_feedback"
	StageUpdateSkills  = "update_skills"
	StageComplete      = "complete"
	StageInfeasible    = "infeasible"
)

// Period is the resumable cycle-state record for one scheduling week. It is
// persisted so a process restart resumes the cycle at the recorded stage.
type Period struct {
	WeekID      string `gorm:"primaryKey;size:10" json:"weekId"`
	Stage       string `gorm:"size:16;not null" json:"stage"`
	SolveStatus string `gorm:"size:12" json:"solveStatus,omitempty"` // optimal | feasible | infeasible
	Diagnostic  string `gorm:"type:text" json:"diagnostic,omitempty"`

	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
