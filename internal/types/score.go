package types

// Grade buckets a score percentage the way the dashboard presents it.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// CriterionScore is the points one criterion contributed, in evaluation order.
type CriterionScore struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
	Weight float64 `json:"weight"`
}

// ScoreBreakdown is the full result of scoring one candidate. Criteria whose
// evaluator lacked the inputs it needs appear in neither Criteria nor
// EnabledMaxScore.
type ScoreBreakdown struct {
	Criteria        []CriterionScore `json:"criteria"`
	EnabledMaxScore float64          `json:"enabled_max_score"`
	TotalScore      float64          `json:"total_score"`
	Percentage      float64          `json:"percentage"`
	Grade           Grade            `json:"grade"`
}

// GradeFor maps a percentage in [0,100] to a letter grade.
func GradeFor(percentage float64) Grade {
	switch {
	case percentage >= 90:
		return GradeS
	case percentage >= 80:
		return GradeA
	case percentage >= 70:
		return GradeB
	case percentage >= 60:
		return GradeC
	case percentage >= 50:
		return GradeD
	default:
		return GradeF
	}
}
