package config

import (
	"math"
	"time"

	"hypogate/domain/experiment"
	"hypogate/domain/validation"
	"hypogate/internal/errors"
)

// Engine is the process-wide validation and orchestration configuration.
// It is built once at startup and handed to every component explicitly.
type Engine struct {
	Strictness            experiment.Strictness
	AcceptThreshold       float64
	Weights               map[validation.Criterion]float64
	SNRFloorDB            float64
	DetectabilitySpreadDB float64
	ConsistencyTolerance  float64
	RetryLimit            int
	MaxConcurrent         int
	CollaboratorTimeout   time.Duration
	GenerationTimeout     time.Duration
	ClassifierFloor       float64
	MagnitudeCeiling      float64
}

// DefaultEngine returns the engine defaults.
func DefaultEngine() Engine {
	weights := make(map[validation.Criterion]float64, len(validation.DefaultWeights))
	for c, w := range validation.DefaultWeights {
		weights[c] = w
	}
	return Engine{
		AcceptThreshold:       0.5,
		Weights:               weights,
		SNRFloorDB:            -10,
		DetectabilitySpreadDB: 10,
		ConsistencyTolerance:  0.05,
		RetryLimit:            3,
		MaxConcurrent:         4,
		CollaboratorTimeout:   10 * time.Minute,
		GenerationTimeout:     2 * time.Hour,
		ClassifierFloor:       1.0,
		MagnitudeCeiling:      1e12,
	}
}

// Validate checks engine ranges.
func (e Engine) Validate() error {
	switch {
	case e.AcceptThreshold < 0 || e.AcceptThreshold > 1 || math.IsNaN(e.AcceptThreshold):
		return errors.ConfigInvalidf("ACCEPT_THRESHOLD %v outside [0,1]", e.AcceptThreshold)
	case e.RetryLimit < 1:
		return errors.ConfigInvalidf("PHASE_RETRY_LIMIT must be >= 1, got %d", e.RetryLimit)
	case e.MaxConcurrent < 1:
		return errors.ConfigInvalidf("MAX_CONCURRENT_EXPERIMENTS must be >= 1, got %d", e.MaxConcurrent)
	case e.ConsistencyTolerance <= 0:
		return errors.ConfigInvalidf("CONSISTENCY_TOLERANCE must be > 0, got %v", e.ConsistencyTolerance)
	case e.DetectabilitySpreadDB <= 0:
		return errors.ConfigInvalidf("DETECTABILITY_SPREAD_DB must be > 0, got %v", e.DetectabilitySpreadDB)
	case e.CollaboratorTimeout <= 0 || e.GenerationTimeout <= 0:
		return errors.ConfigInvalid("collaborator timeouts must be positive")
	}
	sum := 0.0
	for _, c := range validation.AllCriteria() {
		w, ok := e.Weights[c]
		if !ok || w < 0 {
			return errors.ConfigInvalidf("weight for %s missing or negative", c)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		return errors.ConfigInvalidf("criterion weights sum to %v, want 1", sum)
	}
	return nil
}

// Run is the effective configuration of one validation pass: engine
// defaults with the experiment's per-run overrides applied.
type Run struct {
	Strictness            experiment.Strictness
	AcceptThreshold       float64
	Floors                map[validation.Criterion]float64
	Weights               map[validation.Criterion]float64
	SNRFloorDB            float64
	SNRFloorOverride      bool
	DetectabilitySpreadDB float64
	Tolerance             float64
	MagnitudeCeiling      float64
}

// ForExperiment merges per-run overrides. Strictness can only tighten.
func (e Engine) ForExperiment(exp *experiment.Experiment) Run {
	run := Run{
		Strictness:            e.Strictness.Tighten(exp.Strictness),
		AcceptThreshold:       e.AcceptThreshold,
		Floors:                make(map[validation.Criterion]float64),
		Weights:               e.Weights,
		SNRFloorDB:            e.SNRFloorDB,
		DetectabilitySpreadDB: e.DetectabilitySpreadDB,
		Tolerance:             e.ConsistencyTolerance,
		MagnitudeCeiling:      e.MagnitudeCeiling,
	}
	t := exp.Thresholds
	if t.AcceptThreshold != nil {
		run.AcceptThreshold = *t.AcceptThreshold
	}
	if t.SNRFloorDB != nil {
		run.SNRFloorDB = *t.SNRFloorDB
		run.SNRFloorOverride = true
	}
	if t.Tolerance != nil {
		run.Tolerance = *t.Tolerance
	}
	for name, floor := range t.Floors {
		if c, ok := validation.ParseCriterion(name); ok {
			run.Floors[c] = floor
		}
	}
	return run
}

// TrapFloorDB resolves the plausibility-trap floor: the run override, then
// the domain default, then the engine floor.
func (r Run) TrapFloorDB(domainDefault *float64) float64 {
	if !r.SNRFloorOverride && domainDefault != nil {
		return *domainDefault
	}
	return r.SNRFloorDB
}
