// Package experiment holds the experiment record that flows through
// classification, validation and the phase-gated pipeline.
package experiment

import (
	"sort"
	"time"

	"hypogate/domain/core"
)

// DatasetReference points at a real dataset used to ground the hypothesis.
type DatasetReference struct {
	Source     string `json:"source" yaml:"source" validate:"required"`
	Variable   string `json:"variable,omitempty" yaml:"variable,omitempty"`
	Authentic  bool   `json:"authentic" yaml:"authentic"`
	Provenance string `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

// IsSynthetic reports whether the reference is marked as synthetic data.
func (d DatasetReference) IsSynthetic() bool { return !d.Authentic }

// Strictness holds the data-authenticity mandate flags.
type Strictness struct {
	RealDataMandatory      bool `json:"real_data_mandatory"`
	SyntheticDataForbidden bool `json:"synthetic_data_forbidden"`
}

// Tighten returns the union of s and other. Run-level flags can only make
// the process-level mandate stricter.
func (s Strictness) Tighten(other Strictness) Strictness {
	return Strictness{
		RealDataMandatory:      s.RealDataMandatory || other.RealDataMandatory,
		SyntheticDataForbidden: s.SyntheticDataForbidden || other.SyntheticDataForbidden,
	}
}

// Any reports whether any mandate flag is active.
func (s Strictness) Any() bool { return s.RealDataMandatory || s.SyntheticDataForbidden }

// Thresholds are per-run overrides of the engine defaults. Nil means "use default".
type Thresholds struct {
	AcceptThreshold *float64           `json:"accept_threshold,omitempty"`
	Floors          map[string]float64 `json:"floors,omitempty"`
	SNRFloorDB      *float64           `json:"snr_floor_db,omitempty"`
	Tolerance       *float64           `json:"tolerance,omitempty"`
}

// Experiment is a submitted research idea moving through the pipeline.
type Experiment struct {
	ID             core.ExperimentID  `json:"id"`
	Domain         DomainTag          `json:"domain,omitempty"`
	DomainOverride string             `json:"domain_override,omitempty"`
	Hypothesis     string             `json:"hypothesis"`
	Parameters     map[string]float64 `json:"parameters"`
	Datasets       []DatasetReference `json:"datasets"`
	CurrentPhase   string             `json:"current_phase,omitempty"`
	Status         Status             `json:"status"`
	Thresholds     Thresholds         `json:"thresholds"`
	Strictness     Strictness         `json:"strictness"`
	Novelty        *float64           `json:"novelty,omitempty"`
	Archived       bool               `json:"archived"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// New creates a pending experiment.
func New(id core.ExperimentID, hypothesis string, params map[string]float64, datasets []DatasetReference, now time.Time) *Experiment {
	if id.String() == "" {
		id = core.NewExperimentID()
	}
	p := make(map[string]float64, len(params))
	for k, v := range params {
		p[k] = v
	}
	ds := make([]DatasetReference, len(datasets))
	copy(ds, datasets)
	return &Experiment{
		ID:         id,
		Hypothesis: hypothesis,
		Parameters: p,
		Datasets:   ds,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsClassified reports whether a domain tag has been assigned.
func (e *Experiment) IsClassified() bool { return e.Domain != "" }

// Started reports whether the pipeline has entered its first phase.
func (e *Experiment) Started() bool { return e.CurrentPhase != "" }

// ParameterNames returns the parameter names sorted.
func (e *Experiment) ParameterNames() []string {
	names := make([]string, 0, len(e.Parameters))
	for k := range e.Parameters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetParameter updates one parameter. Only legal before generation starts.
func (e *Experiment) SetParameter(name string, value float64, now time.Time) error {
	if e.Status == StatusGenerating || e.Status.IsTerminal() {
		return core.NewTransitionError("parameters", string(e.Status), "mutated")
	}
	e.Parameters[name] = value
	e.UpdatedAt = now
	return nil
}

// ReplaceDatasets swaps dataset references. Refused once the pipeline started.
func (e *Experiment) ReplaceDatasets(refs []DatasetReference) error {
	if e.Started() {
		return core.ErrReadOnlyDataset
	}
	e.Datasets = append([]DatasetReference(nil), refs...)
	return nil
}

// Fingerprint hashes everything validation depends on. Identical fingerprints
// must produce identical validation results.
func (e *Experiment) Fingerprint() core.Hash {
	parts := []string{
		string(e.Domain),
		e.Hypothesis,
		core.ComputeParameterHash(e.Parameters).String(),
	}
	for _, d := range e.Datasets {
		auth := "synthetic"
		if d.Authentic {
			auth = "real"
		}
		parts = append(parts, d.Source, d.Variable, auth)
	}
	return core.ComputeFingerprint(parts...)
}

// Clone returns a deep copy safe to hand to another goroutine.
func (e *Experiment) Clone() *Experiment {
	c := *e
	c.Parameters = make(map[string]float64, len(e.Parameters))
	for k, v := range e.Parameters {
		c.Parameters[k] = v
	}
	c.Datasets = append([]DatasetReference(nil), e.Datasets...)
	if e.Thresholds.Floors != nil {
		c.Thresholds.Floors = make(map[string]float64, len(e.Thresholds.Floors))
		for k, v := range e.Thresholds.Floors {
			c.Thresholds.Floors[k] = v
		}
	}
	return &c
}
