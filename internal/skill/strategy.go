package skill

import (
	"fmt"

	"github.com/kylemckinstry/rostretto/internal/models"
)

// A Scorer converts one feedback record into skill-point observations for
// its assignment. The second return is the scorer's confidence in [0, 1];
// low-confidence scores are routed to manual review instead of being applied.
type Scorer interface {
	Score(fb *models.Feedback, asgn *models.Assignment) (models.SkillPoints, float64, error)
}

// A Predictor estimates skill points from feedback, typically a trained model
// behind an external service.
type Predictor interface {
	Predict(fb *models.Feedback, asgn *models.Assignment) (models.SkillPoints, float64, error)
}

// ManualScorer applies operator-entered skill points, keyed by feedback ID.
// Feedback without an entry scores at zero confidence, which flags it for
// review rather than resolving it.
type ManualScorer struct {
	Values map[string]models.SkillPoints
}

func (s *ManualScorer) Score(fb *models.Feedback, _ *models.Assignment) (models.SkillPoints, float64, error) {
	p, ok := s.Values[fb.ID]
	if !ok {
		return models.SkillPoints{}, 0, nil
	}
	return p, 1, nil
}

// Rule scoring constants. A rating of 1 maps to 10 points and 5 to 90, so
// extremes stay clear of the clamp and repeated feedback can still move the
// average in both directions.
const (
	ruleBaseFloor   = 10.0
	ruleBaseStep    = 20.0 // points per rating step above the minimum
	ruleTagBoost    = 8.0  // bonus when a tag names the dimension
	ruleOffRoleDamp = 0.9  // dampening for universal dims outside the role's focus

	trafficBusyMult  = 1.1
	trafficQuietMult = 0.95
)

// RuleScorer derives skill points deterministically from the rating, traffic
// level and tags. The role's dominant dimension always receives a score, as
// do the universal dimensions speed and customer service; the craft
// dimensions coffee and sandwich are scored only when the role exercises
// them or a tag calls one out.
type RuleScorer struct {
	RoleDimension map[string]string
}

func (s *RuleScorer) Score(fb *models.Feedback, asgn *models.Assignment) (models.SkillPoints, float64, error) {
	if fb.Rating < models.MinRating || fb.Rating > models.MaxRating {
		return models.SkillPoints{}, 0, fmt.Errorf("skill: rule score feedback %s: rating %d out of range", fb.ID, fb.Rating)
	}
	base := ruleBaseFloor + float64(fb.Rating-models.MinRating)*ruleBaseStep
	switch fb.Traffic {
	case models.TrafficBusy:
		base *= trafficBusyMult
	case models.TrafficQuiet:
		base *= trafficQuietMult
	}

	primary := models.DimCustomerService
	if dim, ok := s.RoleDimension[asgn.Role]; ok {
		primary = dim
	}

	var out models.SkillPoints
	for _, dim := range models.Dimensions {
		tagged := fb.HasTag(dim)
		score := base
		switch {
		case dim == primary:
		case dim == models.DimSpeed || dim == models.DimCustomerService:
			score *= ruleOffRoleDamp
		case !tagged:
			continue // off-role craft dimension with no tag evidence
		}
		if tagged {
			score += ruleTagBoost
		}
		out.Set(dim, score)
	}
	return out, 1, nil
}

// PredictorScorer scores through an external predictor, passing its
// confidence straight through for threshold gating.
type PredictorScorer struct {
	Predictor Predictor
}

func (s *PredictorScorer) Score(fb *models.Feedback, asgn *models.Assignment) (models.SkillPoints, float64, error) {
	p, conf, err := s.Predictor.Predict(fb, asgn)
	if err != nil {
		return models.SkillPoints{}, 0, fmt.Errorf("skill: predict feedback %s: %w", fb.ID, err)
	}
	return p, conf, nil
}

// NewScorer builds the scorer named by strategy. The predictor strategy needs
// an injected Predictor; callers without one get an error rather than a
// silent fallback.
func NewScorer(strategy string, roleDim map[string]string, pred Predictor) (Scorer, error) {
	switch strategy {
	case "manual":
		return &ManualScorer{Values: map[string]models.SkillPoints{}}, nil
	case "rule", "":
		return &RuleScorer{RoleDimension: roleDim}, nil
	case "predictor":
		if pred == nil {
			return nil, fmt.Errorf("skill: predictor strategy selected but no predictor is wired")
		}
		return &PredictorScorer{Predictor: pred}, nil
	default:
		return nil, fmt.Errorf("skill: unknown scoring strategy %q", strategy)
	}
}
