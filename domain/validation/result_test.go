package validation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrectionsSkipsHardViolations(t *testing.T) {
	r := &ValidationResult{Violations: []Violation{
		SoftViolation("concentration", KindOutOfRange, "above max", "[10,98]", 99, 98),
		HardViolation("pressure", KindNonFinite, "NaN", "", math.NaN()),
	}}

	c := r.Corrections()
	assert.Equal(t, map[string]float64{"concentration": 98}, c)
	assert.True(t, r.HasHard())
	assert.Len(t, r.SoftViolations(), 1)
}

func TestSortViolationsHardFirst(t *testing.T) {
	vs := []Violation{
		SoftViolation("b", KindOutOfRange, "", "", 0, 0),
		HardViolation("z", KindConstraint, "", "", 0),
		SoftViolation("a", KindOutOfRange, "", "", 0, 0),
	}
	SortViolations(vs)
	assert.Equal(t, "z", vs[0].Parameter)
	assert.Equal(t, "a", vs[1].Parameter)
	assert.Equal(t, "b", vs[2].Parameter)
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, c := range AllCriteria() {
		sum += DefaultWeights[c]
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestFailureKindRetryable(t *testing.T) {
	tests := []struct {
		kind FailureKind
		want bool
	}{
		{FailureSoft, true},
		{FailureHardPhysical, false},
		{FailurePlausibilityTrap, false},
		{FailureAuthenticity, false},
		{FailureConfiguration, false},
	}
	for _, tt := range tests {
		if got := tt.kind.Retryable(); got != tt.want {
			t.Errorf("%s.Retryable() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
