package validation

import "sort"

// Criterion names a dimension of the scoring model.
type Criterion string

const (
	CriterionDetectability     Criterion = "detectability"
	CriterionFeasibility       Criterion = "feasibility"
	CriterionLiteratureSupport Criterion = "literature_support"
	CriterionNovelty           Criterion = "novelty"
)

// AllCriteria returns the criteria in report order.
func AllCriteria() []Criterion {
	return []Criterion{
		CriterionDetectability,
		CriterionFeasibility,
		CriterionLiteratureSupport,
		CriterionNovelty,
	}
}

// DefaultWeights are the default criterion weights. They sum to 1.
var DefaultWeights = map[Criterion]float64{
	CriterionDetectability:     0.25,
	CriterionFeasibility:       0.25,
	CriterionLiteratureSupport: 0.25,
	CriterionNovelty:           0.25,
}

// ParseCriterion validates a criterion name.
func ParseCriterion(s string) (Criterion, bool) {
	for _, c := range AllCriteria() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Scores holds per-criterion scores in [0,1].
type Scores map[Criterion]float64

// Names returns the scored criteria in sorted order.
func (s Scores) Names() []Criterion {
	out := make([]Criterion, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
