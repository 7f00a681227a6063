// Package timeplan handles ISO week arithmetic and per-role time windows.
package timeplan

import (
	"fmt"
	"sort"
	"time"

	"github.com/kylemckinstry/rostretto/internal/config"
	"github.com/kylemckinstry/rostretto/internal/models"
)

// DateLayout is the calendar-date wire format.
const DateLayout = "2006-01-02"

// WeekID formats t's ISO week as e.g. "2025-W36".
func WeekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ParseWeekID parses an ISO week identifier and returns the Monday of that
// week in loc.
func ParseWeekID(weekID string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	var year, week int
	if _, err := fmt.Sscanf(weekID, "%d-W%d", &year, &week); err != nil {
		return time.Time{}, fmt.Errorf("timeplan: parse week id %q: %w", weekID, err)
	}
	if week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("timeplan: week %d out of range in %q", week, weekID)
	}
	// Jan 4 is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	monday := jan4.AddDate(0, 0, -(int(jan4.Weekday())+6)%7)
	return monday.AddDate(0, 0, (week-1)*7), nil
}

// WeekDates returns the seven dates of an ISO week, Monday first.
func WeekDates(weekID string, loc *time.Location) ([]string, error) {
	monday, err := ParseWeekID(weekID, loc)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 7)
	for i := range dates {
		dates[i] = monday.AddDate(0, 0, i).Format(DateLayout)
	}
	return dates, nil
}

// IsWeekend reports whether date (YYYY-MM-DD) falls on Saturday or Sunday.
func IsWeekend(date string) (bool, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return false, fmt.Errorf("timeplan: parse date %q: %w", date, err)
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday, nil
}

// WindowsFor returns the coverage windows for role on date: the configured
// weekday or weekend windows, or the default shift window when the role has
// none. Multiple weekend windows describe staggered slots.
func WindowsFor(cfg *config.Config, role, date string) ([]config.Window, error) {
	weekend, err := IsWeekend(date)
	if err != nil {
		return nil, err
	}
	rw, ok := cfg.RoleWindows[role]
	if ok {
		if weekend && len(rw.Weekend) > 0 {
			return rw.Weekend, nil
		}
		if !weekend && len(rw.Weekday) > 0 {
			return rw.Weekday, nil
		}
	}
	return []config.Window{cfg.DefaultShift}, nil
}

// BuildWeekSlots materializes the week's shift slots from the configured
// requirements and role windows: one slot per (date, role, window), carrying
// that window's share of the day's headcount.
func BuildWeekSlots(cfg *config.Config, weekID string) ([]models.ShiftSlot, error) {
	dates, err := WeekDates(weekID, cfg.Location())
	if err != nil {
		return nil, err
	}
	var slots []models.ShiftSlot
	for _, date := range dates {
		weekend, err := IsWeekend(date)
		if err != nil {
			return nil, err
		}
		reqs := cfg.RequirementsFor(date, weekend)
		roles := make([]string, 0, len(reqs))
		for role := range reqs {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		for _, role := range roles {
			needed := reqs[role]
			if needed <= 0 {
				continue
			}
			windows, err := WindowsFor(cfg, role, date)
			if err != nil {
				return nil, err
			}
			// Spread headcount across windows, earliest window first.
			per := spread(needed, len(windows))
			for i, w := range windows {
				if per[i] == 0 {
					continue
				}
				slots = append(slots, models.ShiftSlot{
					Date:      date,
					WeekID:    weekID,
					Role:      role,
					StartTime: w.Start,
					EndTime:   w.End,
					Headcount: per[i],
				})
			}
		}
	}
	return slots, nil
}

// spread divides n across k buckets, front-loaded.
func spread(n, k int) []int {
	out := make([]int, k)
	for i := 0; n > 0; i = (i + 1) % k {
		out[i]++
		n--
	}
	return out
}
