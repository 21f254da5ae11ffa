package ports

import (
	"context"

	"hypogate/domain/artifacts"
	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/domain/phase"
	"hypogate/domain/validation"
)

// ListFilter narrows ListExperiments.
type ListFilter struct {
	Status          experiment.Status
	IncludeArchived bool
	Limit           int
}

// ExperimentStore persists experiments, phase states, validation results
// and artifacts. Validation results are append-only.
type ExperimentStore interface {
	SaveExperiment(ctx context.Context, exp *experiment.Experiment) error
	GetExperiment(ctx context.Context, id core.ExperimentID) (*experiment.Experiment, error)
	ListExperiments(ctx context.Context, filter ListFilter) ([]*experiment.Experiment, error)
	Archive(ctx context.Context, id core.ExperimentID) error

	SavePhaseState(ctx context.Context, state phase.State) error
	GetPhaseRecord(ctx context.Context, id core.ExperimentID) (*phase.StatusRecord, error)

	AppendValidation(ctx context.Context, result *validation.ValidationResult) error
	ListValidations(ctx context.Context, id core.ExperimentID) ([]*validation.ValidationResult, error)

	SaveArtifact(ctx context.Context, artifact *artifacts.Artifact) error
	ListArtifacts(ctx context.Context, id core.ExperimentID) ([]*artifacts.Artifact, error)
}
