package models

import "time"

// Assignment binds one worker to one shift slot in one role. The rating
// columns form the skill-point vector: nil until feedback for the pair has
// been scored, filled exactly once by the updater.
type Assignment struct {
	ShiftID  uint   `gorm:"primaryKey;autoIncrement:false" json:"shiftId"`
	WorkerID uint   `gorm:"primaryKey;autoIncrement:false" json:"employeeId"`
	WeekID   string `gorm:"size:10;index" json:"weekId"`
	Role     string `gorm:"size:16" json:"role"`

	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`

	CoffeeRating          *float64 `json:"coffeeRating,omitempty"`
	SandwichRating        *float64 `json:"sandwichRating,omitempty"`
	CustomerServiceRating *float64 `json:"customerServiceRating,omitempty"`
	SpeedRating           *float64 `json:"speedRating,omitempty"`

	Present    bool `gorm:"not null;default:true" json:"present"`
	Resolved   bool `gorm:"not null;default:false;index" json:"resolved"`
	ReviewFlag bool `gorm:"not null;default:false" json:"reviewFlag"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// SkillPoints returns the assignment's skill-point observations.
func (a *Assignment) SkillPoints() SkillPoints {
	return SkillPoints{
		Coffee:          a.CoffeeRating,
		Sandwich:        a.SandwichRating,
		CustomerService: a.CustomerServiceRating,
		Speed:           a.SpeedRating,
	}
}

// FillSkillPoints writes the skill-point vector and marks the assignment
// resolved. The fill is a one-time operation; callers guard re-fills.
func (a *Assignment) FillSkillPoints(p SkillPoints) {
	a.CoffeeRating = p.Coffee
	a.SandwichRating = p.Sandwich
	a.CustomerServiceRating = p.CustomerService
	a.SpeedRating = p.Speed
	a.Resolved = true
}

// Hours returns the assignment duration in hours.
func (a *Assignment) Hours() float64 {
	d := a.EndTime.Sub(a.StartTime)
	if d < 0 {
		return 0
	}
	return d.Hours()
}
