package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hypogate/domain/experiment"
	"hypogate/domain/validation"
	"hypogate/internal/config"
)

func defaultRun() config.Run {
	return config.DefaultEngine().ForExperiment(&experiment.Experiment{})
}

func fullScores(v float64) validation.Scores {
	return validation.Scores{
		validation.CriterionDetectability:     v,
		validation.CriterionFeasibility:       v,
		validation.CriterionLiteratureSupport: v,
		validation.CriterionNovelty:           v,
	}
}

func TestCompositeEqualWeights(t *testing.T) {
	s := NewScorer()
	scores := validation.Scores{
		validation.CriterionDetectability:     1,
		validation.CriterionFeasibility:       1,
		validation.CriterionLiteratureSupport: 0.5,
		validation.CriterionNovelty:           0.5,
	}
	assert.InDelta(t, 0.75, s.Composite(scores, defaultRun().Weights), 1e-12)
}

func TestDecide(t *testing.T) {
	hard := validation.HardViolation("vapor_pressure", validation.KindConstraint, "impossible", "", 2000)
	soft := validation.SoftViolation("concentration", validation.KindOutOfRange, "above", "[10,98]", 150, 98)
	trap := validation.HardViolation("effect", validation.KindPlausibility, "noise", "", -15.5)
	auth := validation.HardViolation("dataset", validation.KindAuthenticity, "synthetic", "", 0)

	tests := []struct {
		name       string
		scores     validation.Scores
		violations []validation.Violation
		want       validation.FailureKind
	}{
		{"clean pass", fullScores(0.9), nil, validation.FailureNone},
		{"below threshold", fullScores(0.2), nil, validation.FailureSoft},
		{"hard vetoes high score", fullScores(1), []validation.Violation{hard}, validation.FailureHardPhysical},
		{"soft fails", fullScores(1), []validation.Violation{soft}, validation.FailureSoft},
		{"trap beats hard", fullScores(1), []validation.Violation{hard, trap}, validation.FailurePlausibilityTrap},
		{"authenticity beats all", fullScores(1), []validation.Violation{soft, hard, trap, auth}, validation.FailureAuthenticity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewScorer().Decide(tt.scores, tt.violations, defaultRun())
			assert.Equal(t, tt.want, d.Failure)
			assert.Equal(t, tt.want == validation.FailureNone, d.Passed)
		})
	}
}

func TestDecideFloors(t *testing.T) {
	run := defaultRun()
	run.Floors[validation.CriterionNovelty] = 0.6

	scores := fullScores(0.9)
	scores[validation.CriterionNovelty] = 0.4
	d := NewScorer().Decide(scores, nil, run)

	assert.False(t, d.Passed)
	assert.Equal(t, validation.FailureSoft, d.Failure)
	if assert.Len(t, d.FloorViolations, 1) {
		assert.Equal(t, "novelty", d.FloorViolations[0].Parameter)
		assert.Nil(t, d.FloorViolations[0].CorrectedValue)
	}
}

func TestDecideThresholdInclusive(t *testing.T) {
	run := defaultRun()
	run.AcceptThreshold = 0.5
	d := NewScorer().Decide(fullScores(0.5), nil, run)
	assert.True(t, d.Passed)
}
