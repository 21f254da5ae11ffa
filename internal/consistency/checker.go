// Package consistency re-validates generated artifacts against the
// parameters that were certified before generation.
package consistency

import (
	"fmt"
	"math"
	"sort"

	"hypogate/domain/artifacts"
	"hypogate/domain/validation"
	"hypogate/internal/config"
	"hypogate/internal/validator"
)

// Report is the outcome of one consistency check.
type Report struct {
	Claims      []Claim                `json:"claims"`
	Divergences []validation.Violation `json:"divergences"`
	Violations  []validation.Violation `json:"violations"`
	Passed      bool                   `json:"passed"`
}

// Checker compares artifact claims to the validated parameter set.
type Checker struct{}

// NewChecker creates a new consistency checker
func NewChecker() *Checker {
	return &Checker{}
}

// Check extracts claims from the artifact and flags any that diverge from
// validated by more than run.Tolerance (relative), then re-runs the domain
// range and constraint checks with the claimed values substituted.
func (c *Checker) Check(art *artifacts.Artifact, validated map[string]float64, v validator.Validator, run config.Run) *Report {
	known := make(map[string]bool, len(validated))
	for name := range validated {
		known[name] = true
	}
	for _, r := range v.Ranges() {
		known[r.Parameter] = true
	}

	claims := declaredClaims(art)
	claims = append(claims, ExtractClaims(art.Content, known)...)

	rep := &Report{Claims: claims}
	claimed := make(map[string]float64, len(validated))
	for k, val := range validated {
		claimed[k] = val
	}
	for _, cl := range claims {
		claimed[cl.Parameter] = cl.Value
		want, ok := validated[cl.Parameter]
		if !ok {
			continue
		}
		if Diverges(cl.Value, want, run.Tolerance) {
			corrected := want
			rep.Divergences = append(rep.Divergences, validation.Violation{
				Parameter:      cl.Parameter,
				Severity:       validation.SeveritySoft,
				Kind:           validation.KindInconsistency,
				Message:        fmt.Sprintf("%s claim %g (%s) drifts from validated %g", cl.Parameter, cl.Value, cl.Source, want),
				Bound:          fmt.Sprintf("within %.2f%% of %g", run.Tolerance*100, want),
				Observed:       cl.Value,
				CorrectedValue: &corrected,
			})
		}
	}
	rep.Violations = v.CheckParameters(claimed, run)
	rep.Passed = len(rep.Divergences) == 0 && len(rep.Violations) == 0
	return rep
}

// Diverges reports whether claim differs from want by more than tol relative
// to |want|. A zero want falls back to an absolute comparison.
func Diverges(claim, want, tol float64) bool {
	if math.IsNaN(claim) || math.IsInf(claim, 0) {
		return true
	}
	diff := math.Abs(claim - want)
	if want == 0 {
		return diff > tol
	}
	return diff > tol*math.Abs(want)
}

// AsViolations returns every problem found, divergences first.
func (r *Report) AsViolations() []validation.Violation {
	out := append([]validation.Violation(nil), r.Divergences...)
	return append(out, r.Violations...)
}

func declaredClaims(art *artifacts.Artifact) []Claim {
	names := make([]string, 0, len(art.Claims))
	for k := range art.Claims {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]Claim, 0, len(names))
	for _, n := range names {
		out = append(out, Claim{Parameter: n, Value: art.Claims[n], Source: SourceDeclared})
	}
	return out
}
