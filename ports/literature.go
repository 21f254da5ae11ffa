package ports

import (
	"context"

	"hypogate/domain/experiment"
)

// LiteratureAssessment scores an experiment against prior work; both scores are in [0,1].
type LiteratureAssessment struct {
	Support   float64  `json:"support"`
	Novelty   float64  `json:"novelty"`
	Citations []string `json:"citations,omitempty"`
}

// LiteratureSource is the bibliography collaborator.
type LiteratureSource interface {
	Assess(ctx context.Context, exp *experiment.Experiment) (*LiteratureAssessment, error)
}
