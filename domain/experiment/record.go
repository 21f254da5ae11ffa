package experiment

import (
	"time"

	"hypogate/domain/core"
)

// ConfigRecord is the experiment configuration record accepted at submission.
type ConfigRecord struct {
	ID                     string             `json:"id,omitempty" yaml:"id,omitempty"`
	DomainOverride         string             `json:"domain_override,omitempty" yaml:"domain_override,omitempty"`
	Hypothesis             string             `json:"hypothesis" yaml:"hypothesis" validate:"required,min=10"`
	Parameters             map[string]float64 `json:"parameters" yaml:"parameters" validate:"required,min=1"`
	Datasets               []DatasetReference `json:"datasets" yaml:"datasets" validate:"required,min=1,dive"`
	AcceptThreshold        *float64           `json:"accept_threshold,omitempty" yaml:"accept_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	Floors                 map[string]float64 `json:"floors,omitempty" yaml:"floors,omitempty" validate:"omitempty,dive,gte=0,lte=1"`
	SNRFloorDB             *float64           `json:"snr_floor_db,omitempty" yaml:"snr_floor_db,omitempty" validate:"omitempty,gte=-100,lte=100"`
	Tolerance              *float64           `json:"tolerance,omitempty" yaml:"tolerance,omitempty" validate:"omitempty,gt=0,lte=1"`
	Novelty                *float64           `json:"novelty,omitempty" yaml:"novelty,omitempty" validate:"omitempty,gte=0,lte=1"`
	RealDataMandatory      bool               `json:"real_data_mandatory,omitempty" yaml:"real_data_mandatory,omitempty"`
	SyntheticDataForbidden bool               `json:"synthetic_data_forbidden,omitempty" yaml:"synthetic_data_forbidden,omitempty"`
}

// ToExperiment builds a pending experiment from an already validated record.
func (r *ConfigRecord) ToExperiment(now time.Time) *Experiment {
	exp := New(core.ExperimentID(r.ID), r.Hypothesis, r.Parameters, r.Datasets, now)
	exp.DomainOverride = r.DomainOverride
	exp.Novelty = r.Novelty
	exp.Strictness = Strictness{
		RealDataMandatory:      r.RealDataMandatory,
		SyntheticDataForbidden: r.SyntheticDataForbidden,
	}
	exp.Thresholds = Thresholds{
		AcceptThreshold: r.AcceptThreshold,
		SNRFloorDB:      r.SNRFloorDB,
		Tolerance:       r.Tolerance,
	}
	if len(r.Floors) > 0 {
		exp.Thresholds.Floors = make(map[string]float64, len(r.Floors))
		for k, v := range r.Floors {
			exp.Thresholds.Floors[k] = v
		}
	}
	return exp
}
