package orchestrator

import (
	"context"
	"math"
	"sort"

	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/domain/validation"
)

// ClampCorrector applies the suggested value of every soft violation that
// names an existing experiment parameter. Score-floor and claim violations
// carry no parameter of the experiment and are left alone.
type ClampCorrector struct {
	clock core.Clock
}

// NewClampCorrector creates a corrector stamping updates with clock.
func NewClampCorrector(clock core.Clock) *ClampCorrector {
	if clock == nil {
		clock = core.SystemClock
	}
	return &ClampCorrector{clock: clock}
}

// Correct implements ports.Corrector.
func (c *ClampCorrector) Correct(_ context.Context, exp *experiment.Experiment, result *validation.ValidationResult) (map[string]float64, error) {
	if result == nil || result.HasHard() {
		return nil, nil
	}
	changed := make(map[string]float64)
	corrections := result.Corrections()
	for _, name := range sortedKeys(corrections) {
		current, ok := exp.Parameters[name]
		target := corrections[name]
		if !ok || current == target || !validation.IsFinite(target) {
			continue
		}
		if err := exp.SetParameter(name, target, c.clock()); err != nil {
			return changed, err
		}
		changed[name] = target
	}
	return changed, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyParams(p map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
