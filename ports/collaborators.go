package ports

import (
	"context"

	"hypogate/domain/artifacts"
	"hypogate/domain/experiment"
	"hypogate/domain/validation"
)

// Enhancement is the result of the enhancement collaborator.
type Enhancement struct {
	Hypothesis string             `json:"hypothesis,omitempty"`
	Parameters map[string]float64 `json:"parameters,omitempty"`
	Notes      string             `json:"notes,omitempty"`
}

// Enhancer refines an experiment before the pre-validation gate.
type Enhancer interface {
	Enhance(ctx context.Context, exp *experiment.Experiment) (*Enhancement, error)
}

// Corrector applies a corrective step between gate retries and returns the
// parameters it changed.
type Corrector interface {
	Correct(ctx context.Context, exp *experiment.Experiment, result *validation.ValidationResult) (map[string]float64, error)
}

// Reporter delivers the compiled deliverable.
type Reporter interface {
	Publish(ctx context.Context, report *artifacts.Artifact) error
}
