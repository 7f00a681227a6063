package models

import (
	"strings"
	"time"
)

// Traffic levels, ordered quiet < normal < busy.
const (
	TrafficQuiet  = "quiet"
	TrafficNormal = "normal"
	TrafficBusy   = "busy"
)

// TrafficLevels lists the fixed traffic enumeration in order.
var TrafficLevels = []string{TrafficQuiet, TrafficNormal, TrafficBusy}

// Rating bounds for post-shift evaluations.
const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is one manager evaluation of a (shift, worker) pair. Records are
// append-only: a correction creates a new record with SupersedesID set, the
// original is never edited.
type Feedback struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	ShiftID  uint   `gorm:"not null;index:idx_feedback_pair" json:"shiftId"`
	WorkerID uint   `gorm:"not null;index:idx_feedback_pair" json:"employeeId"`

	Rating  int    `gorm:"not null" json:"rating"`          // 1-5
	Traffic string `gorm:"size:8;not null" json:"traffic"`  // quiet | normal | busy
	Comment string `gorm:"type:text" json:"comment,omitempty"`
	Tags    string `gorm:"size:256" json:"tags,omitempty"` // semicolon-separated keywords
	Present bool   `gorm:"not null;default:true" json:"present"`

	SupersedesID *string   `gorm:"size:36" json:"supersedesId,omitempty"`
	SubmittedAt  time.Time `gorm:"not null" json:"submittedAt"`
}

// TagSet returns the feedback's tags as a normalized slice.
func (f *Feedback) TagSet() []string {
	if f.Tags == "" {
		return nil
	}
	parts := strings.Split(f.Tags, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToLower(strings.TrimSpace(p)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// HasTag reports whether the feedback carries tag (case-insensitive).
func (f *Feedback) HasTag(tag string) bool {
	tag = strings.ToLower(tag)
	for _, t := range f.TagSet() {
		if t == tag {
			return true
		}
	}
	return false
}

// ValidTraffic reports whether level is within the fixed enumeration.
func ValidTraffic(level string) bool {
	for _, l := range TrafficLevels {
		if l == level {
			return true
		}
	}
	return false
}
