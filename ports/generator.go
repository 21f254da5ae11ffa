package ports

import (
	"context"
	"errors"
	"fmt"

	"hypogate/domain/artifacts"
	"hypogate/domain/core"
	"hypogate/domain/experiment"
)

// GenerationRequest carries the certified parameters into the generation call.
type GenerationRequest struct {
	ExperimentID core.ExperimentID    `json:"experiment_id"`
	Domain       experiment.DomainTag `json:"domain"`
	Hypothesis   string               `json:"hypothesis"`
	Parameters   map[string]float64   `json:"parameters"`
	Attempt      int                  `json:"attempt"`
	Feedback     []string             `json:"feedback,omitempty"`
}

// Generator produces the artifact. Long running; implementations must honor ctx.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*artifacts.Artifact, error)
}

// ErrorTag says whether a collaborator failure may be retried.
type ErrorTag string

const (
	TagRetryable ErrorTag = "retryable"
	TagPermanent ErrorTag = "permanent"
)

// CollaboratorError is the tagged failure returned by external collaborators.
type CollaboratorError struct {
	Collaborator string
	Tag          ErrorTag
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Collaborator, e.Tag, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Retryable tags err as a transient collaborator failure.
func Retryable(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Tag: TagRetryable, Err: err}
}

// Permanent tags err as an unrecoverable collaborator failure.
func Permanent(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Tag: TagPermanent, Err: err}
}

// TagOf extracts the tag from err's chain. Untagged errors are reported as permanent.
func TagOf(err error) ErrorTag {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Tag
	}
	return TagPermanent
}
