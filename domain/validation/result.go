// Package validation holds the outcome types of a domain validation pass.
package validation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"hypogate/domain/core"
	"hypogate/domain/experiment"
)

// Severity classifies a violation.
type Severity string

const (
	SeveritySoft Severity = "soft"
	SeverityHard Severity = "hard"
)

// Violation is one detected problem in an experiment.
type Violation struct {
	Parameter      string   `json:"parameter"`
	Severity       Severity `json:"severity"`
	Kind           string   `json:"kind"`
	Message        string   `json:"message"`
	Bound          string   `json:"bound,omitempty"`
	Observed       float64  `json:"observed"`
	CorrectedValue *float64 `json:"corrected_value,omitempty"`
}

// Violation kinds.
const (
	KindOutOfRange    = "out_of_range"
	KindConstraint    = "cross_parameter_constraint"
	KindNonFinite     = "non_finite"
	KindMagnitude     = "magnitude"
	KindPlausibility  = "empirical_plausibility"
	KindAuthenticity  = "data_authenticity"
	KindScoreFloor    = "score_floor"
	KindInconsistency = "claim_inconsistency"
)

// IsHard reports whether the violation is non-correctable.
func (v Violation) IsHard() bool { return v.Severity == SeverityHard }

func (v Violation) String() string {
	s := fmt.Sprintf("[%s] %s %s: %s", v.Severity, v.Kind, v.Parameter, v.Message)
	if v.CorrectedValue != nil {
		s += fmt.Sprintf(" (suggested %.6g)", *v.CorrectedValue)
	}
	return s
}

// SoftViolation builds a correctable violation with a suggested value.
func SoftViolation(param, kind, msg, bound string, observed, corrected float64) Violation {
	c := corrected
	return Violation{
		Parameter:      param,
		Severity:       SeveritySoft,
		Kind:           kind,
		Message:        msg,
		Bound:          bound,
		Observed:       observed,
		CorrectedValue: &c,
	}
}

// HardViolation builds a non-correctable violation.
func HardViolation(param, kind, msg, bound string, observed float64) Violation {
	return Violation{
		Parameter: param,
		Severity:  SeverityHard,
		Kind:      kind,
		Message:   msg,
		Bound:     bound,
		Observed:  observed,
	}
}

// FailureKind names why a result did not pass. Empty when passed.
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailureAuthenticity     FailureKind = "data_authenticity"
	FailurePlausibilityTrap FailureKind = "empirical_plausibility_trap"
	FailureHardPhysical     FailureKind = "hard_physical"
	FailureSoft             FailureKind = "soft"
	FailureConfiguration    FailureKind = "configuration"
)

// Retryable reports whether a gate failure of this kind may be corrected and retried.
func (f FailureKind) Retryable() bool { return f == FailureSoft }

// ValidationResult is the immutable outcome of one validation pass.
type ValidationResult struct {
	ID           core.ResultID        `json:"id"`
	ExperimentID core.ExperimentID    `json:"experiment_id"`
	Domain       experiment.DomainTag `json:"domain"`
	Attempt      int                  `json:"attempt"`
	Stage        string               `json:"stage"`
	Passed       bool                 `json:"passed"`
	Failure      FailureKind          `json:"failure,omitempty"`
	Violations   []Violation          `json:"violations"`
	Scores       Scores               `json:"scores"`
	Composite    float64              `json:"composite"`
	SNRdB        *float64             `json:"snr_db,omitempty"`
	SNRFloorDB   *float64             `json:"snr_floor_db,omitempty"`
	Fingerprint  core.Hash            `json:"fingerprint"`
	Timestamp    time.Time            `json:"timestamp"`
	Detail       string               `json:"detail,omitempty"`
}

// HardViolations returns only non-correctable violations.
func (r *ValidationResult) HardViolations() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.IsHard() {
			out = append(out, v)
		}
	}
	return out
}

// SoftViolations returns only correctable violations.
func (r *ValidationResult) SoftViolations() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if !v.IsHard() {
			out = append(out, v)
		}
	}
	return out
}

// HasHard reports whether any violation is hard.
func (r *ValidationResult) HasHard() bool { return len(r.HardViolations()) > 0 }

// Corrections maps parameter name to suggested value for every soft violation
// that carries one. The last suggestion for a parameter wins.
func (r *ValidationResult) Corrections() map[string]float64 {
	out := make(map[string]float64)
	for _, v := range r.Violations {
		if v.IsHard() || v.CorrectedValue == nil || v.Parameter == "" {
			continue
		}
		out[v.Parameter] = *v.CorrectedValue
	}
	return out
}

// SortViolations orders violations hard first, then by parameter and kind.
func SortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Severity != vs[j].Severity {
			return vs[i].Severity == SeverityHard
		}
		if vs[i].Parameter != vs[j].Parameter {
			return vs[i].Parameter < vs[j].Parameter
		}
		return vs[i].Kind < vs[j].Kind
	})
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
