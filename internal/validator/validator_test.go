package validator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypogate/domain/experiment"
	"hypogate/domain/validation"
	"hypogate/internal/config"
	"hypogate/internal/empirical"
	"hypogate/ports"
)

var collectedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// noise alternates +-amp, giving population variance amp^2.
func noise(amp float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp
		if i%2 == 1 {
			out[i] = -amp
		}
	}
	return out
}

func evidence(authentic bool, values []float64) Evidence {
	ref := experiment.DatasetReference{Source: "noaa", Variable: "concentration", Authentic: authentic}
	return Evidence{
		Datasets: []DatasetEvidence{{
			Reference: ref,
			Series:    &ports.Series{Source: "noaa", Variable: "concentration", Values: values, Authentic: authentic},
		}},
		CollectedAt: collectedAt,
	}
}

func newExp(params map[string]float64) *experiment.Experiment {
	return experiment.New("exp-1", "Sulfuric acid concentration controls droplet growth", params,
		[]experiment.DatasetReference{{Source: "noaa", Authentic: true}}, collectedAt)
}

func chemical(t *testing.T) Validator {
	t.Helper()
	v, err := NewRegistry(nil, nil).Get(experiment.DomainChemicalComposition)
	require.NoError(t, err)
	return v
}

func runFor(exp *experiment.Experiment) config.Run {
	return config.DefaultEngine().ForExperiment(exp)
}

// around offsets noise(amp, n) to mean m.
func around(m, amp float64, n int) []float64 {
	out := noise(amp, n)
	for i := range out {
		out[i] += m
	}
	return out
}

func TestChemicalCompositionInRangePasses(t *testing.T) {
	exp := newExp(map[string]float64{"concentration": 75, "temperature": 220})
	res := chemical(t).Validate(exp, evidence(true, around(72, 1, 50)), runFor(exp))

	assert.True(t, res.Passed)
	assert.Empty(t, res.Violations)
	assert.Equal(t, validation.FailureNone, res.Failure)
	assert.Equal(t, 1.0, res.Scores[validation.CriterionFeasibility])
	assert.Equal(t, collectedAt, res.Timestamp)
	require.NotNil(t, res.SNRdB)
	// effect |75 - 72| = 3 against unit variance
	assert.InDelta(t, 10*math.Log10(9), *res.SNRdB, 1e-9)
}

func TestExplicitEffectSizeOverridesBaseline(t *testing.T) {
	exp := newExp(map[string]float64{"concentration": 75, "effect_size": empirical.EffectForSNR(-15.5, 1)})
	res := chemical(t).Validate(exp, evidence(true, around(72, 1, 50)), runFor(exp))

	assert.Equal(t, validation.FailurePlausibilityTrap, res.Failure)
	require.NotNil(t, res.SNRdB)
	assert.InDelta(t, -15.5, *res.SNRdB, 1e-9)
}

func TestConcentrationAtSeriesBaselineIsTrap(t *testing.T) {
	exp := newExp(map[string]float64{"concentration": 72, "temperature": 220})
	res := chemical(t).Validate(exp, evidence(true, around(72, 1, 50)), runFor(exp))
	assert.Equal(t, validation.FailurePlausibilityTrap, res.Failure)
}

func TestChemicalCompositionOutOfRangeSuggestsClamp(t *testing.T) {
	exp := newExp(map[string]float64{"concentration": 150, "temperature": 220})
	res := chemical(t).Validate(exp, evidence(true, around(72, 1, 50)), runFor(exp))

	assert.False(t, res.Passed)
	assert.Equal(t, validation.FailureSoft, res.Failure)
	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, "concentration", v.Parameter)
	assert.Equal(t, validation.SeveritySoft, v.Severity)
	require.NotNil(t, v.CorrectedValue)
	assert.Equal(t, 98.0, *v.CorrectedValue)
	assert.Equal(t, map[string]float64{"concentration": 98}, res.Corrections())
}

func TestPlausibilityTrapIsHard(t *testing.T) {
	exp := newExp(map[string]float64{
		"concentration": 75,
		"temperature":   220,
		"effect_size":   empirical.EffectForSNR(-15.5, 1),
	})
	res := chemical(t).Validate(exp, evidence(true, noise(1, 50)), runFor(exp))

	assert.False(t, res.Passed)
	assert.Equal(t, validation.FailurePlausibilityTrap, res.Failure)
	assert.False(t, res.Failure.Retryable())
	require.NotNil(t, res.SNRdB)
	assert.InDelta(t, -15.5, *res.SNRdB, 1e-9)
	assert.True(t, res.HasHard())
}

func TestSyntheticDataForbiddenIsAuthenticityFailure(t *testing.T) {
	exp := newExp(map[string]float64{"concentration": 75, "temperature": 220})
	exp.Strictness.SyntheticDataForbidden = true

	res := chemical(t).Validate(exp, evidence(false, noise(1, 50)), runFor(exp))
	assert.False(t, res.Passed)
	assert.Equal(t, validation.FailureAuthenticity, res.Failure)
	assert.Empty(t, res.Scores)
}

func TestRealDataMandatoryRequiresAuthenticSeries(t *testing.T) {
	exp := newExp(map[string]float64{"concentration": 75, "effect_size": 2})
	run := runFor(exp)
	run.Strictness.RealDataMandatory = true

	ev := evidence(true, noise(1, 50))
	ev.Datasets[0].Series.Authentic = false
	res := chemical(t).Validate(exp, ev, run)
	assert.Equal(t, validation.FailureAuthenticity, res.Failure)
}

func TestRangeBoundaryInclusive(t *testing.T) {
	tests := []struct {
		concentration float64
		pass          bool
	}{
		{98, true},
		{99, false},
		{10, true},
		{9, false},
	}
	for _, tt := range tests {
		exp := newExp(map[string]float64{"concentration": tt.concentration})
		res := chemical(t).Validate(exp, evidence(true, noise(1, 50)), runFor(exp))
		if res.Passed != tt.pass {
			t.Errorf("concentration=%v: passed=%v, want %v (violations %v)", tt.concentration, res.Passed, tt.pass, res.Violations)
		}
	}
}

func TestCrossParameterConstraintIsHard(t *testing.T) {
	exp := newExp(map[string]float64{"pressure": 800, "vapor_pressure": 900, "effect_size": 2})
	res := chemical(t).Validate(exp, evidence(true, noise(1, 50)), runFor(exp))

	assert.Equal(t, validation.FailureHardPhysical, res.Failure)
	require.Len(t, res.HardViolations(), 1)
	assert.Equal(t, "vapor_pressure", res.HardViolations()[0].Parameter)
	assert.Nil(t, res.HardViolations()[0].CorrectedValue)
}

func TestUnderivableEffectIsConfigurationFailure(t *testing.T) {
	// the series is concentration but the record carries no concentration
	exp := newExp(map[string]float64{"temperature": 220})
	res := chemical(t).Validate(exp, evidence(true, noise(1, 50)), runFor(exp))
	assert.Equal(t, validation.FailureConfiguration, res.Failure)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Detail, "effect_size")
}

func TestDomainTrapFloors(t *testing.T) {
	reg := NewRegistry(nil, nil)
	signal, err := reg.Get(experiment.DomainSignalDetection)
	require.NoError(t, err)
	floor, ok := signal.DefaultSNRFloorDB()
	require.True(t, ok)
	assert.Equal(t, SIGNAL_DETECTION_SNR_FLOOR_DB, floor)
	_, ok = chemical(t).DefaultSNRFloorDB()
	assert.False(t, ok)

	amplitude := empirical.EffectForSNR(-15, 1)
	exp := newExp(map[string]float64{"signal_amplitude": amplitude})
	res := signal.Validate(exp, evidence(true, noise(1, 50)), runFor(exp))
	assert.NotEqual(t, validation.FailurePlausibilityTrap, res.Failure)
	require.NotNil(t, res.SNRFloorDB)
	assert.Equal(t, -20.0, *res.SNRFloorDB)

	// chemical_composition falls back to the engine floor of -10 dB
	chem := newExp(map[string]float64{"concentration": 75, "effect_size": amplitude})
	res = chemical(t).Validate(chem, evidence(true, noise(1, 50)), runFor(chem))
	assert.Equal(t, validation.FailurePlausibilityTrap, res.Failure)
	assert.Equal(t, -10.0, *res.SNRFloorDB)

	// a record floor beats the domain default
	override := -10.0
	exp.Thresholds.SNRFloorDB = &override
	res = signal.Validate(exp, evidence(true, noise(1, 50)), runFor(exp))
	assert.Equal(t, validation.FailurePlausibilityTrap, res.Failure)
	assert.Equal(t, -10.0, *res.SNRFloorDB)
}

func TestGenericUniversalChecks(t *testing.T) {
	v, err := NewRegistry(nil, nil).Get(experiment.DomainGeneric)
	require.NoError(t, err)
	run := config.DefaultEngine().ForExperiment(&experiment.Experiment{})

	got := v.CheckParameters(map[string]float64{"a": math.NaN(), "b": -1e13, "c": 5}, run)
	require.Len(t, got, 2)
	assert.Equal(t, validation.KindNonFinite, got[0].Kind)
	assert.Equal(t, validation.KindMagnitude, got[1].Kind)
	assert.Equal(t, -1e12, *got[1].CorrectedValue)
}

func TestValidateIsDeterministic(t *testing.T) {
	exp := newExp(map[string]float64{"concentration": 150, "temperature": 260, "effect_size": 0.8})
	v := chemical(t)
	ev := evidence(true, noise(1, 50))

	first := v.Validate(exp, ev, runFor(exp))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, v.Validate(exp, ev, runFor(exp)))
	}
}

func TestDomainConstraints(t *testing.T) {
	reg := NewRegistry(nil, nil)
	run := config.DefaultEngine().ForExperiment(&experiment.Experiment{})
	tests := []struct {
		domain experiment.DomainTag
		params map[string]float64
		hard   bool
	}{
		{experiment.DomainSignalDetection, map[string]float64{"sampling_rate": 100, "signal_frequency": 60}, true},
		{experiment.DomainSignalDetection, map[string]float64{"sampling_rate": 100, "signal_frequency": 50}, false},
		{experiment.DomainAtmosphericTransport, map[string]float64{"wind_speed": 10, "residence_time": 1, "transport_distance": 900}, true},
		{experiment.DomainAtmosphericTransport, map[string]float64{"wind_speed": 10, "residence_time": 1, "transport_distance": 864}, false},
		{experiment.DomainRadiativeForcing, map[string]float64{"co2_concentration": 560, "co2_forcing": 4.2}, false},
		{experiment.DomainRadiativeForcing, map[string]float64{"co2_concentration": 560, "co2_forcing": 8}, true},
		{experiment.DomainClimateResponse, map[string]float64{"climate_sensitivity": 3, "forcing": 3.71, "temperature_change": 2.5}, false},
		{experiment.DomainClimateResponse, map[string]float64{"climate_sensitivity": 3, "forcing": 3.71, "temperature_change": 4}, true},
		{experiment.DomainParticleDynamics, map[string]float64{"number_concentration": 1000, "particle_diameter": 1, "particle_density": 1000, "mass_concentration": 5000}, true},
		{experiment.DomainParticleDynamics, map[string]float64{"number_concentration": 1000, "particle_diameter": 1, "particle_density": 1000, "mass_concentration": 500}, false},
		{experiment.DomainChemicalComposition, map[string]float64{"concentration": 70, "diluent_fraction": 40}, true},
	}
	for _, tt := range tests {
		v, err := reg.Get(tt.domain)
		require.NoError(t, err)
		got := v.CheckParameters(tt.params, run)
		hard := false
		for _, viol := range got {
			hard = hard || viol.IsHard()
		}
		if hard != tt.hard {
			t.Errorf("%s %v: hard=%v, want %v (%v)", tt.domain, tt.params, hard, tt.hard, got)
		}
	}
}

// Parameter sets drawn strictly inside every domain's ranges, checked
// against a near-noiseless series, always pass with zero violations.
func TestInRangeParametersAlwaysPass(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	reg := NewRegistry(nil, nil)
	series := noise(1e-6, 64)

	for _, tag := range reg.Domains() {
		v, err := reg.Get(tag)
		require.NoError(t, err)
		for trial := 0; trial < 200; trial++ {
			params := map[string]float64{"effect_size": 0.5 + rng.Float64()}
			for _, r := range v.Ranges() {
				params[r.Parameter] = r.Min + rng.Float64()*(r.Max-r.Min)
			}
			exp := newExp(params)
			res := v.Validate(exp, evidence(true, series), runFor(exp))
			if !res.Passed || len(res.Violations) > 0 {
				t.Fatalf("%s trial %d: params %v failed: %s %v", tag, trial, params, res.Failure, res.Violations)
			}
		}
	}
}

func TestPrecedentScore(t *testing.T) {
	assert.Equal(t, PRECEDENT_BASE_SCORE, PrecedentScore("nothing here", []string{"henry"}))
	assert.InDelta(t, 0.7, PrecedentScore("Henry and Raoult", []string{"henry", "raoult"}), 1e-12)
	assert.Equal(t, 1.0, PrecedentScore("a b c d e f", []string{"a", "b", "c", "d", "e", "f"}))
}

func TestLiteratureAssessmentOverridesStub(t *testing.T) {
	exp := newExp(map[string]float64{"concentration": 75})
	ev := evidence(true, noise(1, 50))
	ev.Literature = &ports.LiteratureAssessment{Support: 0.9, Novelty: 0.2}

	res := chemical(t).Validate(exp, ev, runFor(exp))
	assert.Equal(t, 0.9, res.Scores[validation.CriterionLiteratureSupport])
	assert.Equal(t, 0.2, res.Scores[validation.CriterionNovelty])
}

func TestRegistryUnknownDomain(t *testing.T) {
	_, err := NewRegistry(nil, nil).Get("astrology")
	assert.Error(t, err)
	assert.Len(t, NewRegistry(nil, nil).Domains(), 7)
}
