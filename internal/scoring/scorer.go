// Package scoring combines criterion sub-scores into a gate decision.
package scoring

import (
	"fmt"
	"math"

	"hypogate/domain/validation"
	"hypogate/internal/config"
)

// Decision is the outcome of scoring one validation pass.
type Decision struct {
	Composite       float64
	Passed          bool
	Failure         validation.FailureKind
	BelowThreshold  bool
	FloorViolations []validation.Violation
}

// Scorer applies weights, floors and the accept threshold.
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Composite returns the weighted sum of scores, each clamped to [0,1].
// Missing criteria count as zero.
func (s *Scorer) Composite(scores validation.Scores, weights map[validation.Criterion]float64) float64 {
	total := 0.0
	for _, c := range validation.AllCriteria() {
		total += weights[c] * clamp01(scores[c])
	}
	return total
}

// Decide turns scores and the violations gathered so far into a decision.
// Any hard violation vetoes regardless of score. Soft violations, floor
// misses and a composite below threshold fail softly.
func (s *Scorer) Decide(scores validation.Scores, violations []validation.Violation, run config.Run) Decision {
	d := Decision{Composite: s.Composite(scores, run.Weights)}

	for _, c := range validation.AllCriteria() {
		floor, ok := run.Floors[c]
		if !ok || floor <= 0 {
			continue
		}
		if score := clamp01(scores[c]); score < floor {
			d.FloorViolations = append(d.FloorViolations, validation.Violation{
				Parameter: string(c),
				Severity:  validation.SeveritySoft,
				Kind:      validation.KindScoreFloor,
				Message:   fmt.Sprintf("%s score %.3f below floor %.3f", c, score, floor),
				Bound:     fmt.Sprintf(">= %.3f", floor),
				Observed:  score,
			})
		}
	}

	d.BelowThreshold = d.Composite < run.AcceptThreshold
	all := append(append([]validation.Violation(nil), violations...), d.FloorViolations...)
	d.Failure = ClassifyFailure(all, d.BelowThreshold)
	d.Passed = d.Failure == validation.FailureNone
	return d
}

// ClassifyFailure picks the most severe failure kind present. Precedence:
// data authenticity, plausibility trap, hard physical, soft.
func ClassifyFailure(violations []validation.Violation, belowThreshold bool) validation.FailureKind {
	var auth, trap, hard, soft bool
	for _, v := range violations {
		switch {
		case v.Kind == validation.KindAuthenticity:
			auth = true
		case v.Kind == validation.KindPlausibility && v.IsHard():
			trap = true
		case v.IsHard():
			hard = true
		default:
			soft = true
		}
	}
	switch {
	case auth:
		return validation.FailureAuthenticity
	case trap:
		return validation.FailurePlausibilityTrap
	case hard:
		return validation.FailureHardPhysical
	case soft || belowThreshold:
		return validation.FailureSoft
	}
	return validation.FailureNone
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
