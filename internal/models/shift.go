package models

import (
	"fmt"
	"time"
)

// ShiftSlot is a single shift instance requiring coverage: one role, one time
// window, on one date, needing Headcount workers. Slots are created by
// calendar generation and immutable afterwards.
type ShiftSlot struct {
	ID        uint   `gorm:"primaryKey" json:"shiftId"`
	Date      string `gorm:"size:10;index" json:"date"`    // YYYY-MM-DD
	WeekID    string `gorm:"size:10;index" json:"weekId"`  // ISO week, e.g. 2025-W36
	Role      string `gorm:"size:16;index" json:"role"`
	StartTime string `gorm:"size:5" json:"start"` // HH:MM
	EndTime   string `gorm:"size:5" json:"end"`
	Headcount int    `gorm:"not null;default:1" json:"headcount"`

	CreatedAt time.Time `json:"-"`
}

// Hours returns the slot duration in hours.
func (s *ShiftSlot) Hours() float64 {
	start, err1 := minutesOfDay(s.StartTime)
	end, err2 := minutesOfDay(s.EndTime)
	if err1 != nil || err2 != nil || end <= start {
		return 0
	}
	return float64(end-start) / 60.0
}

// StartAt returns the slot's start instant in loc.
func (s *ShiftSlot) StartAt(loc *time.Location) (time.Time, error) {
	return combine(s.Date, s.StartTime, loc)
}

// EndAt returns the slot's end instant in loc.
func (s *ShiftSlot) EndAt(loc *time.Location) (time.Time, error) {
	return combine(s.Date, s.EndTime, loc)
}

func minutesOfDay(hm string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(hm, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time %q: %w", hm, err)
	}
	return h*60 + m, nil
}

func combine(date, hm string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q %q: %w", date, hm, err)
	}
	return t, nil
}
