// Package report renders validation reports, terminal failure reports and
// the compiled deliverable as markdown, with an HTML variant for the API.
package report

import (
	"fmt"
	"sort"
	"time"

	"hypogate/domain/artifacts"
	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/domain/phase"
	"hypogate/domain/validation"
	"hypogate/internal/errors"
)

// ValidationReport mirrors a ValidationResult and adds a human-readable
// violation list plus suggested corrected parameter values.
type ValidationReport struct {
	Result      *validation.ValidationResult `json:"result"`
	Violations  []string                     `json:"violations"`
	Corrections map[string]float64           `json:"suggested_corrections,omitempty"`
}

// NewValidationReport builds the report for res.
func NewValidationReport(res *validation.ValidationResult) *ValidationReport {
	rep := &ValidationReport{Result: res, Violations: make([]string, 0, len(res.Violations))}
	for _, v := range res.Violations {
		rep.Violations = append(rep.Violations, v.String())
	}
	if c := res.Corrections(); len(c) > 0 {
		rep.Corrections = c
	}
	return rep
}

// FailureReport is attached to every experiment that ends failed. It names
// the originating phase and criterion and, for soft failures, the minimal
// corrective adjustment.
type FailureReport struct {
	ExperimentID core.ExperimentID              `json:"experiment_id"`
	Status       experiment.Status              `json:"status"`
	Phase        string                         `json:"phase"`
	Criterion    string                         `json:"criterion,omitempty"`
	Code         string                         `json:"code"`
	Message      string                         `json:"message"`
	Retryable    bool                           `json:"retryable"`
	Corrections  map[string]float64             `json:"corrections,omitempty"`
	History      []*validation.ValidationResult `json:"history"`
	At           time.Time                      `json:"at"`
}

// NewFailureReport derives a failure report from the terminal error and the
// ordered validation history of the experiment.
func NewFailureReport(exp *experiment.Experiment, cause error, history []*validation.ValidationResult, at time.Time) *FailureReport {
	rep := &FailureReport{
		ExperimentID: exp.ID,
		Status:       exp.Status,
		Phase:        exp.CurrentPhase,
		Code:         errors.GetCode(cause),
		History:      history,
		At:           at,
	}
	if cause != nil {
		rep.Message = cause.Error()
	}
	if appErr, ok := errors.As(cause); ok {
		if appErr.Phase != "" {
			rep.Phase = appErr.Phase
		}
		rep.Criterion = appErr.Criterion
		rep.Message = appErr.Message
	}
	rep.Retryable = errors.IsRetryable(cause)

	if n := len(history); n > 0 {
		last := history[n-1]
		if rep.Criterion == "" && len(last.Violations) > 0 {
			rep.Criterion = last.Violations[0].Parameter
		}
		if !last.HasHard() {
			if c := last.Corrections(); len(c) > 0 {
				rep.Corrections = c
			}
		}
	}
	return rep
}

// Deliverable is the input of the deliverable compilation phase.
type Deliverable struct {
	Experiment *experiment.Experiment
	Phases     *phase.StatusRecord
	Results    []*validation.ValidationResult
	Artifact   *artifacts.Artifact
}

type namedValue struct {
	Name  string
	Value float64
}

func sortedValues(m map[string]float64) []namedValue {
	out := make([]namedValue, 0, len(m))
	for k, v := range m {
		out = append(out, namedValue{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
