// Package csvio imports roster inputs from CSV files and exports solved
// schedules back out, for spreadsheet-driven workflows.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kylemckinstry/rostretto/internal/feedback"
	"github.com/kylemckinstry/rostretto/internal/models"
	"github.com/kylemckinstry/rostretto/internal/timeplan"
)

// TimeLayout is the instant format used in assignment exports.
const TimeLayout = time.RFC3339

// readAll parses a CSV stream, validates its header, and returns data rows.
func readAll(r io.Reader, want []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvio: read: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csvio: empty file, expected header %s", strings.Join(want, ","))
	}
	header := rows[0]
	if len(header) != len(want) {
		return nil, fmt.Errorf("csvio: header has %d columns, expected %d (%s)", len(header), len(want), strings.Join(want, ","))
	}
	for i, col := range want {
		if strings.TrimSpace(strings.ToLower(header[i])) != col {
			return nil, fmt.Errorf("csvio: header column %d is %q, expected %q", i+1, header[i], col)
		}
	}
	return rows[1:], nil
}

var workerHeader = []string{"emp_id", "first_name", "last_name", "roles", "target_min_hours", "target_max_hours"}

// ImportWorkers loads or updates workers from CSV. Roles are a comma-
// separated set inside one quoted field. Existing IDs are overwritten.
func ImportWorkers(db *gorm.DB, r io.Reader) (int, error) {
	rows, err := readAll(r, workerHeader)
	if err != nil {
		return 0, err
	}
	for i, row := range rows {
		line := i + 2
		id, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			return i, fmt.Errorf("csvio: line %d: emp_id %q: %w", line, row[0], err)
		}
		min, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return i, fmt.Errorf("csvio: line %d: target_min_hours %q: %w", line, row[4], err)
		}
		max, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return i, fmt.Errorf("csvio: line %d: target_max_hours %q: %w", line, row[5], err)
		}
		w := models.Worker{
			ID:             uint(id),
			FirstName:      strings.TrimSpace(row[1]),
			LastName:       strings.TrimSpace(row[2]),
			Roles:          strings.ToUpper(strings.ReplaceAll(row[3], " ", "")),
			TargetMinHours: min,
			TargetMaxHours: max,
		}
		for _, role := range w.RoleSet() {
			if !validRole(role) {
				return i, fmt.Errorf("csvio: line %d: unknown role %q", line, role)
			}
		}
		if err := db.Save(&w).Error; err != nil {
			return i, fmt.Errorf("csvio: line %d: store worker %d: %w", line, w.ID, err)
		}
	}
	return len(rows), nil
}

var slotHeader = []string{"date", "role", "start", "end", "headcount"}

// ImportSlots loads shift slots from CSV. The week is derived from the date.
func ImportSlots(db *gorm.DB, r io.Reader) (int, error) {
	rows, err := readAll(r, slotHeader)
	if err != nil {
		return 0, err
	}
	for i, row := range rows {
		line := i + 2
		date := strings.TrimSpace(row[0])
		day, err := time.Parse(timeplan.DateLayout, date)
		if err != nil {
			return i, fmt.Errorf("csvio: line %d: date %q: %w", line, date, err)
		}
		role := strings.ToUpper(strings.TrimSpace(row[1]))
		if !validRole(role) {
			return i, fmt.Errorf("csvio: line %d: unknown role %q", line, role)
		}
		headcount, err := strconv.Atoi(strings.TrimSpace(row[4]))
		if err != nil || headcount <= 0 {
			return i, fmt.Errorf("csvio: line %d: headcount %q", line, row[4])
		}
		slot := models.ShiftSlot{
			Date:      date,
			WeekID:    timeplan.WeekID(day),
			Role:      role,
			StartTime: strings.TrimSpace(row[2]),
			EndTime:   strings.TrimSpace(row[3]),
			Headcount: headcount,
		}
		if slot.Hours() <= 0 {
			return i, fmt.Errorf("csvio: line %d: window %s-%s has no duration", line, slot.StartTime, slot.EndTime)
		}
		if err := db.Create(&slot).Error; err != nil {
			return i, fmt.Errorf("csvio: line %d: store slot: %w", line, err)
		}
	}
	return len(rows), nil
}

var feedbackHeader = []string{"shift_id", "emp_id", "rating", "traffic", "comment", "tags", "present", "supersedes_id"}

// ImportFeedback ingests feedback rows through the same validation as the
// HTTP intake. The first invalid row stops the import with its line number.
func ImportFeedback(db *gorm.DB, r io.Reader, now time.Time) (int, error) {
	rows, err := readAll(r, feedbackHeader)
	if err != nil {
		return 0, err
	}
	for i, row := range rows {
		line := i + 2
		shiftID, err := strconv.ParseUint(strings.TrimSpace(row[0]), 10, 64)
		if err != nil {
			return i, fmt.Errorf("csvio: line %d: shift_id %q: %w", line, row[0], err)
		}
		workerID, err := strconv.ParseUint(strings.TrimSpace(row[1]), 10, 64)
		if err != nil {
			return i, fmt.Errorf("csvio: line %d: emp_id %q: %w", line, row[1], err)
		}
		rating, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return i, fmt.Errorf("csvio: line %d: rating %q: %w", line, row[2], err)
		}
		present := true
		if v := strings.TrimSpace(row[6]); v != "" {
			present, err = strconv.ParseBool(v)
			if err != nil {
				return i, fmt.Errorf("csvio: line %d: present %q: %w", line, row[6], err)
			}
		}
		fb := models.Feedback{
			ShiftID:  uint(shiftID),
			WorkerID: uint(workerID),
			Rating:   rating,
			Traffic:  strings.TrimSpace(row[3]),
			Comment:  strings.TrimSpace(row[4]),
			Tags:     strings.TrimSpace(row[5]),
			Present:  present,
		}
		if s := strings.TrimSpace(row[7]); s != "" {
			fb.SupersedesID = &s
		}
		if err := feedback.Ingest(db, &fb, now); err != nil {
			return i, fmt.Errorf("csvio: line %d: %w", line, err)
		}
	}
	return len(rows), nil
}

// ExportHeader is the assignment export column order.
var ExportHeader = []string{
	"shift_id", "emp_id", "start_time", "end_time",
	"coffee_rating", "sandwich_rating", "customer_service_rating", "speed_rating",
	"present", "role",
}

// ExportAssignments writes a week's assignments as CSV. Unresolved rating
// columns stay empty.
func ExportAssignments(db *gorm.DB, w io.Writer, weekID string) (int, error) {
	var records []models.Assignment
	if err := db.Where("week_id = ?", weekID).
		Order("shift_id, worker_id").Find(&records).Error; err != nil {
		return 0, fmt.Errorf("csvio: export week %s: %w", weekID, err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, fmt.Errorf("csvio: export week %s: %w", weekID, err)
	}
	for i := range records {
		a := &records[i]
		row := []string{
			strconv.FormatUint(uint64(a.ShiftID), 10),
			strconv.FormatUint(uint64(a.WorkerID), 10),
			a.StartTime.Format(TimeLayout),
			a.EndTime.Format(TimeLayout),
			formatRating(a.CoffeeRating),
			formatRating(a.SandwichRating),
			formatRating(a.CustomerServiceRating),
			formatRating(a.SpeedRating),
			strconv.FormatBool(a.Present),
			a.Role,
		}
		if err := cw.Write(row); err != nil {
			return i, fmt.Errorf("csvio: export week %s: %w", weekID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(records), fmt.Errorf("csvio: export week %s: %w", weekID, err)
	}
	return len(records), nil
}

func formatRating(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}

func validRole(role string) bool {
	for _, r := range models.Roles {
		if r == role {
			return true
		}
	}
	return false
}
