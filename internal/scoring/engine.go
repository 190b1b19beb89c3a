package scoring

import (
	"stockpilot/internal/logger"
	"stockpilot/internal/types"
)

// Criterion is one scoring rule. Evaluate returns the earned ratio in [0,1]
// (scaled by Weight into points) and ok=false when the metrics lack the
// inputs it needs. An unavailable criterion is excluded from both the
// numerator and the denominator of the final percentage.
type Criterion struct {
	Name     string
	Weight   float64
	Evaluate func(m types.Metrics) (ratio float64, ok bool)
}

// Engine computes deterministic score breakdowns. It holds no state beyond
// its configured criteria, so identical metrics always produce identical
// breakdowns.
type Engine struct {
	criteria []Criterion
}

func NewEngine(criteria []Criterion) *Engine {
	kept := make([]Criterion, 0, len(criteria))
	for _, c := range criteria {
		if c.Weight <= 0 || c.Evaluate == nil {
			continue
		}
		kept = append(kept, c)
	}
	return &Engine{criteria: kept}
}

// Criteria returns the configured criteria in evaluation order.
func (e *Engine) Criteria() []Criterion {
	out := make([]Criterion, len(e.criteria))
	copy(out, e.criteria)
	return out
}

// Compute scores one candidate's metrics. A criterion that errors out (panics)
// is treated as unavailable and logged; it never aborts the whole candidate.
func (e *Engine) Compute(m types.Metrics) types.ScoreBreakdown {
	breakdown := types.ScoreBreakdown{
		Criteria: make([]types.CriterionScore, 0, len(e.criteria)),
	}
	for _, c := range e.criteria {
		ratio, ok := evaluateSafe(c, m)
		if !ok {
			continue
		}
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
		points := ratio * c.Weight
		breakdown.Criteria = append(breakdown.Criteria, types.CriterionScore{
			Name:   c.Name,
			Points: points,
			Weight: c.Weight,
		})
		breakdown.TotalScore += points
		breakdown.EnabledMaxScore += c.Weight
	}
	if breakdown.EnabledMaxScore > 0 {
		breakdown.Percentage = breakdown.TotalScore / breakdown.EnabledMaxScore * 100
	}
	breakdown.Grade = types.GradeFor(breakdown.Percentage)
	return breakdown
}

func evaluateSafe(c Criterion, m types.Metrics) (ratio float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("scoring: criterion %s panicked, treated as unavailable: %v", c.Name, r)
			ratio, ok = 0, false
		}
	}()
	return c.Evaluate(m)
}
