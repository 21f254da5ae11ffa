// Package validator holds the domain validators and their registry. Every
// validator is a pure function of (experiment, evidence, run config).
package validator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/domain/validation"
	"hypogate/internal/config"
	"hypogate/internal/empirical"
	"hypogate/internal/scoring"
	"hypogate/ports"
)

// DatasetEvidence pairs a dataset reference with the series fetched for it.
// Series is nil when the dataset was not fetched.
type DatasetEvidence struct {
	Reference experiment.DatasetReference
	Series    *ports.Series
}

// Evidence is everything a validation pass may look at besides the experiment.
type Evidence struct {
	Datasets    []DatasetEvidence
	Literature  *ports.LiteratureAssessment
	CollectedAt time.Time
}

// Validator is the uniform contract every domain implements.
type Validator interface {
	Domain() experiment.DomainTag
	DefaultVariable() string
	Ranges() []Range
	DefaultSNRFloorDB() (float64, bool)
	Validate(exp *experiment.Experiment, ev Evidence, run config.Run) *validation.ValidationResult
	CheckParameters(params map[string]float64, run config.Run) []validation.Violation
}

// EffectFunc derives the theoretical effect size from a domain's physics.
type EffectFunc func(p map[string]float64) (float64, bool)

// DomainValidator is the table-driven implementation shared by every domain.
type DomainValidator struct {
	domain      experiment.DomainTag
	variable    string
	ranges      []Range
	constraints []Constraint
	effect      EffectFunc
	precedents  []string
	snrFloorDB  *float64

	analyzer *empirical.Analyzer
	scorer   *scoring.Scorer
}

func (v *DomainValidator) Domain() experiment.DomainTag { return v.domain }

// DefaultVariable is the dataset variable consulted when a reference names none.
func (v *DomainValidator) DefaultVariable() string { return v.variable }

func (v *DomainValidator) Ranges() []Range {
	out := make([]Range, len(v.ranges))
	copy(out, v.ranges)
	return out
}

// DefaultSNRFloorDB is the domain's plausibility-trap floor. ok is false
// when the domain defers to the engine floor.
func (v *DomainValidator) DefaultSNRFloorDB() (float64, bool) {
	if v.snrFloorDB == nil {
		return 0, false
	}
	return *v.snrFloorDB, true
}

// Constraints returns the names of the cross-parameter constraints.
func (v *DomainValidator) Constraints() []string {
	out := make([]string, len(v.constraints))
	for i, c := range v.constraints {
		out[i] = c.Name
	}
	return out
}

// CheckParameters runs universal, range and constraint checks.
func (v *DomainValidator) CheckParameters(params map[string]float64, run config.Run) []validation.Violation {
	ranged := make(map[string]Range, len(v.ranges))
	for _, r := range v.ranges {
		ranged[r.Parameter] = r
	}

	names := sortedNames(params)
	var unranged []string
	for _, n := range names {
		if _, ok := ranged[n]; !ok {
			unranged = append(unranged, n)
		}
	}

	violations := universalChecks(params, unranged, run.MagnitudeCeiling)
	for _, n := range names {
		r, ok := ranged[n]
		if !ok {
			continue
		}
		value := params[n]
		if !validation.IsFinite(value) {
			violations = append(violations, universalChecks(params, []string{n}, run.MagnitudeCeiling)...)
			continue
		}
		if viol := r.check(value); viol != nil {
			violations = append(violations, *viol)
		}
	}
	for _, c := range v.constraints {
		if viol := c.evaluate(params); viol != nil {
			violations = append(violations, *viol)
		}
	}
	validation.SortViolations(violations)
	return violations
}

// Validate performs one full validation pass. The result carries no ID; the
// orchestrator stamps identity when it appends the result.
func (v *DomainValidator) Validate(exp *experiment.Experiment, ev Evidence, run config.Run) *validation.ValidationResult {
	res := &validation.ValidationResult{
		ExperimentID: exp.ID,
		Domain:       v.domain,
		Scores:       validation.Scores{},
		Fingerprint:  exp.Fingerprint(),
		Timestamp:    ev.CollectedAt,
	}

	if viol := checkAuthenticity(ev.Datasets, run.Strictness); viol != nil {
		res.Violations = []validation.Violation{*viol}
		res.Failure = validation.FailureAuthenticity
		res.Detail = viol.Message
		return res
	}

	violations := v.CheckParameters(exp.Parameters, run)

	series := primarySeries(ev.Datasets)
	if series == nil {
		return v.configurationFailure(res, violations, fmt.Errorf("%w: no dataset series", core.ErrInsufficientData))
	}
	effect, ok := v.effectSize(exp.Parameters, series)
	if !ok {
		return v.configurationFailure(res, violations,
			fmt.Errorf("%w: set %s or a %q parameter", core.ErrNoEffectSize, EFFECT_SIZE_PARAM, series.Variable))
	}
	analysis, err := v.analyzer.Analyze(effect, series.Values, run.TrapFloorDB(v.snrFloorDB), run.DetectabilitySpreadDB)
	if err != nil {
		return v.configurationFailure(res, violations, err)
	}
	snr := analysis.SNRdB
	floor := analysis.FloorDB
	res.SNRdB = &snr
	res.SNRFloorDB = &floor
	if analysis.Trap {
		violations = append(violations, validation.HardViolation("effect", validation.KindPlausibility,
			fmt.Sprintf("predicted effect %.4g is indistinguishable from noise in %s/%s (snr %.2f dB < %.2f dB)",
				effect, series.Source, series.Variable, analysis.SNRdB, analysis.FloorDB),
			fmt.Sprintf("snr_db >= %g", analysis.FloorDB), analysis.SNRdB))
	}

	res.Scores[validation.CriterionDetectability] = analysis.Detectability
	res.Scores[validation.CriterionFeasibility] = v.feasibility(exp.Parameters, violations)
	res.Scores[validation.CriterionLiteratureSupport] = v.literatureSupport(exp, ev.Literature)
	res.Scores[validation.CriterionNovelty] = novelty(exp, ev.Literature)

	decision := v.scorer.Decide(res.Scores, violations, run)
	violations = append(violations, decision.FloorViolations...)
	validation.SortViolations(violations)

	res.Violations = violations
	res.Composite = decision.Composite
	res.Failure = decision.Failure
	res.Passed = decision.Passed
	if decision.BelowThreshold && len(violations) == 0 {
		res.Detail = fmt.Sprintf("composite %.3f below accept threshold %.3f", decision.Composite, run.AcceptThreshold)
	}
	return res
}

func (v *DomainValidator) configurationFailure(res *validation.ValidationResult, violations []validation.Violation, cause error) *validation.ValidationResult {
	res.Violations = violations
	res.Failure = validation.FailureConfiguration
	res.Detail = cause.Error()
	if f := scoring.ClassifyFailure(violations, false); f != validation.FailureNone && f != validation.FailureSoft {
		res.Failure = f
	}
	return res
}

// feasibility is the share of checked ranged parameters that are in range.
func (v *DomainValidator) feasibility(params map[string]float64, violations []validation.Violation) float64 {
	checked := 0
	for _, r := range v.ranges {
		if _, ok := params[r.Parameter]; ok {
			checked++
		}
	}
	if checked == 0 {
		return 1
	}
	soft := 0
	for _, viol := range violations {
		if viol.Kind == validation.KindOutOfRange {
			soft++
		}
	}
	f := 1 - float64(soft)/float64(checked)
	if f < 0 {
		return 0
	}
	return f
}

// literatureSupport uses the literature source when present, otherwise the
// precedent stub: base score plus a bonus per precedent keyword in the hypothesis.
func (v *DomainValidator) literatureSupport(exp *experiment.Experiment, lit *ports.LiteratureAssessment) float64 {
	if lit != nil {
		return lit.Support
	}
	return PrecedentScore(exp.Hypothesis, v.precedents)
}

// PrecedentScore is the literature stub used without a literature source.
func PrecedentScore(hypothesis string, precedents []string) float64 {
	text := " " + strings.Join(strings.FieldsFunc(strings.ToLower(hypothesis), isSeparator), " ") + " "
	score := PRECEDENT_BASE_SCORE
	for _, kw := range precedents {
		if strings.Contains(text, " "+kw+" ") {
			score += PRECEDENT_KEYWORD_BONUS
		}
	}
	if score > 1 {
		return 1
	}
	return score
}

func novelty(exp *experiment.Experiment, lit *ports.LiteratureAssessment) float64 {
	switch {
	case lit != nil:
		return lit.Novelty
	case exp.Novelty != nil:
		return *exp.Novelty
	}
	return DEFAULT_NOVELTY
}

// checkAuthenticity enforces the data mandates over every dataset.
func checkAuthenticity(datasets []DatasetEvidence, strict experiment.Strictness) *validation.Violation {
	for _, d := range datasets {
		var cause error
		switch {
		case strict.SyntheticDataForbidden && !d.Reference.Authentic:
			cause = core.ErrSyntheticData
		case strict.SyntheticDataForbidden && d.Series != nil && !d.Series.Authentic:
			cause = core.ErrSyntheticData
		case strict.RealDataMandatory && (d.Series == nil || !d.Series.Authentic):
			cause = core.ErrUnverifiedData
		}
		if cause != nil {
			viol := validation.HardViolation(d.Reference.Source, validation.KindAuthenticity,
				fmt.Sprintf("dataset %q: %v", d.Reference.Source, cause), "authentic", 0)
			return &viol
		}
	}
	return nil
}

func primarySeries(datasets []DatasetEvidence) *ports.Series {
	for _, d := range datasets {
		if d.Series != nil {
			return d.Series
		}
	}
	return nil
}

// IsProvenanceFailure reports whether a result failed on data authenticity.
func IsProvenanceFailure(res *validation.ValidationResult) bool {
	return res != nil && res.Failure == validation.FailureAuthenticity
}

// effectSize resolves the theoretical effect: an explicit EFFECT_SIZE_PARAM,
// then the domain physics, then the distance of the parameter named after
// the series variable from the series mean.
func (v *DomainValidator) effectSize(p map[string]float64, series *ports.Series) (float64, bool) {
	if e, ok := p[EFFECT_SIZE_PARAM]; ok && validation.IsFinite(e) {
		return e, true
	}
	if v.effect != nil {
		if e, ok := v.effect(p); ok && validation.IsFinite(e) {
			return e, true
		}
	}
	return baselineDeviation(p, series)
}

// baselineDeviation is |p[variable] - mean(series)|.
func baselineDeviation(p map[string]float64, series *ports.Series) (float64, bool) {
	value, ok := p[series.Variable]
	if !ok || !validation.IsFinite(value) {
		return 0, false
	}
	finite := make(stats.Float64Data, 0, len(series.Values))
	for _, x := range series.Values {
		if validation.IsFinite(x) {
			finite = append(finite, x)
		}
	}
	mean, err := finite.Mean()
	if err != nil {
		return 0, false
	}
	return math.Abs(value - mean), true
}

func sortedNames(p map[string]float64) []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}
