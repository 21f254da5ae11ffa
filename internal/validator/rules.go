package validator

import (
	"fmt"
	"math"

	"hypogate/domain/validation"
)

// Range is an inclusive plausible interval for one parameter.
type Range struct {
	Parameter string  `json:"parameter"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Unit      string  `json:"unit,omitempty"`
}

// Contains reports whether Min <= v <= Max.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Nearest returns the closest in-range value to v.
func (r Range) Nearest(v float64) float64 { return math.Max(r.Min, math.Min(r.Max, v)) }

func (r Range) String() string {
	if r.Unit == "" {
		return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
	}
	return fmt.Sprintf("[%g, %g] %s", r.Min, r.Max, r.Unit)
}

// check returns a soft violation when v is outside the range.
func (r Range) check(v float64) *validation.Violation {
	if r.Contains(v) {
		return nil
	}
	side := "below minimum"
	if v > r.Max {
		side = "above maximum"
	}
	viol := validation.SoftViolation(r.Parameter, validation.KindOutOfRange,
		fmt.Sprintf("%g %s of %s", v, side, r),
		r.String(), v, r.Nearest(v))
	return &viol
}

// Constraint is a cross-parameter physical law. Check returns the observed
// value and the ceiling it must not exceed.
type Constraint struct {
	Name       string
	Subject    string
	Parameters []string
	Describe   string
	Check      func(p map[string]float64) (observed, ceiling float64)
}

// applies reports whether every parameter the constraint needs is present and finite.
func (c Constraint) applies(p map[string]float64) bool {
	for _, name := range c.Parameters {
		v, ok := p[name]
		if !ok || !validation.IsFinite(v) {
			return false
		}
	}
	return true
}

func (c Constraint) evaluate(p map[string]float64) *validation.Violation {
	if !c.applies(p) {
		return nil
	}
	observed, ceiling := c.Check(p)
	if observed <= ceiling+math.Abs(ceiling)*CONSTRAINT_EPSILON {
		return nil
	}
	viol := validation.HardViolation(c.Subject, validation.KindConstraint,
		fmt.Sprintf("%s violated: %g exceeds %g", c.Name, observed, ceiling),
		c.Describe, observed)
	return &viol
}

// universalChecks flags non-finite values (hard) and absurd magnitudes (soft).
func universalChecks(p map[string]float64, names []string, ceiling float64) []validation.Violation {
	if ceiling <= 0 {
		ceiling = DEFAULT_MAGNITUDE_CEILING
	}
	var out []validation.Violation
	for _, name := range names {
		v := p[name]
		switch {
		case !validation.IsFinite(v):
			out = append(out, validation.HardViolation(name, validation.KindNonFinite,
				fmt.Sprintf("%s is not a finite number", name), "finite", v))
		case math.Abs(v) > ceiling:
			out = append(out, validation.SoftViolation(name, validation.KindMagnitude,
				fmt.Sprintf("|%g| exceeds magnitude ceiling %g", v, ceiling),
				fmt.Sprintf("|x| <= %g", ceiling), v, math.Copysign(ceiling, v)))
		}
	}
	return out
}
