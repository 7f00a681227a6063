package models

// Skill dimensions are fixed across the system. Scores run 0-100.
const (
	DimCoffee          = "coffee"
	DimSandwich        = "sandwich"
	DimCustomerService = "customer_service"
	DimSpeed           = "speed"
)

// Dimensions lists every skill dimension in canonical order.
var Dimensions = []string{DimCoffee, DimSandwich, DimCustomerService, DimSpeed}

// SkillVector holds one score per skill dimension.
type SkillVector struct {
	Coffee          float64 `json:"coffee"`
	Sandwich        float64 `json:"sandwich"`
	CustomerService float64 `json:"customer_service"`
	Speed           float64 `json:"speed"`
}

// Get returns the score for a dimension, or 0 for an unknown dimension.
func (v SkillVector) Get(dim string) float64 {
	switch dim {
	case DimCoffee:
		return v.Coffee
	case DimSandwich:
		return v.Sandwich
	case DimCustomerService:
		return v.CustomerService
	case DimSpeed:
		return v.Speed
	}
	return 0
}

// Set writes the score for a dimension. Unknown dimensions are ignored.
func (v *SkillVector) Set(dim string, score float64) {
	switch dim {
	case DimCoffee:
		v.Coffee = score
	case DimSandwich:
		v.Sandwich = score
	case DimCustomerService:
		v.CustomerService = score
	case DimSpeed:
		v.Speed = score
	}
}

// Clamped returns a copy with every dimension clamped to [0, 100].
func (v SkillVector) Clamped() SkillVector {
	out := v
	for _, dim := range Dimensions {
		s := out.Get(dim)
		if s < 0 {
			out.Set(dim, 0)
		} else if s > 100 {
			out.Set(dim, 100)
		}
	}
	return out
}

// SkillPoints is a partial per-assignment observation: dimensions without an
// observation stay nil and are excluded from aggregation.
type SkillPoints struct {
	Coffee          *float64 `json:"coffee,omitempty"`
	Sandwich        *float64 `json:"sandwich,omitempty"`
	CustomerService *float64 `json:"customer_service,omitempty"`
	Speed           *float64 `json:"speed,omitempty"`
}

// Get returns the observation pointer for a dimension.
func (p SkillPoints) Get(dim string) *float64 {
	switch dim {
	case DimCoffee:
		return p.Coffee
	case DimSandwich:
		return p.Sandwich
	case DimCustomerService:
		return p.CustomerService
	case DimSpeed:
		return p.Speed
	}
	return nil
}

// Set records an observation for a dimension, clamped to [0, 100].
func (p *SkillPoints) Set(dim string, score float64) {
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}
	v := score
	switch dim {
	case DimCoffee:
		p.Coffee = &v
	case DimSandwich:
		p.Sandwich = &v
	case DimCustomerService:
		p.CustomerService = &v
	case DimSpeed:
		p.Speed = &v
	}
}

// Empty reports whether no dimension carries an observation.
func (p SkillPoints) Empty() bool {
	return p.Coffee == nil && p.Sandwich == nil && p.CustomerService == nil && p.Speed == nil
}
