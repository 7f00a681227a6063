package models

import (
	"strings"
	"time"
)

// Café roles. A worker may be eligible for more than one.
const (
	RoleManager  = "MANAGER"
	RoleBarista  = "BARISTA"
	RoleWaiter   = "WAITER"
	RoleSandwich = "SANDWICH"
)

// Roles lists every role in canonical order.
var Roles = []string{RoleManager, RoleBarista, RoleWaiter, RoleSandwich}

// Worker is a schedulable employee. The skill columns form the current skill
// vector; they are derived by the aggregator at cycle boundaries and never
// authored directly.
type Worker struct {
	ID        uint   `gorm:"primaryKey" json:"employeeId"`
	FirstName string `gorm:"size:64" json:"firstName"`
	LastName  string `gorm:"size:64" json:"lastName"`
	Roles     string `gorm:"size:128;index" json:"roles"` // comma-separated role set

	SkillCoffee          float64 `json:"skillCoffee"`
	SkillSandwich        float64 `json:"skillSandwich"`
	SkillCustomerService float64 `json:"customerService"`
	SkillSpeed           float64 `json:"speed"`

	TargetMinHours float64 `json:"targetMinHours"` // weekly hours band
	TargetMaxHours float64 `json:"targetMaxHours"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// RoleSet returns the worker's eligible roles.
func (w *Worker) RoleSet() []string {
	if w.Roles == "" {
		return nil
	}
	parts := strings.Split(w.Roles, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if r := strings.ToUpper(strings.TrimSpace(p)); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// HasRole reports whether the worker is eligible for role.
func (w *Worker) HasRole(role string) bool {
	for _, r := range w.RoleSet() {
		if r == role {
			return true
		}
	}
	return false
}

// Skills returns the worker's current skill vector.
func (w *Worker) Skills() SkillVector {
	return SkillVector{
		Coffee:          w.SkillCoffee,
		Sandwich:        w.SkillSandwich,
		CustomerService: w.SkillCustomerService,
		Speed:           w.SkillSpeed,
	}
}

// SetSkills overwrites the worker's stored skill vector.
func (w *Worker) SetSkills(v SkillVector) {
	v = v.Clamped()
	w.SkillCoffee = v.Coffee
	w.SkillSandwich = v.Sandwich
	w.SkillCustomerService = v.CustomerService
	w.SkillSpeed = v.Speed
}
