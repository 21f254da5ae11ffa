package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound           = errors.New("resource not found")
	ErrExperimentNotFound = fmt.Errorf("%w: experiment", ErrNotFound)
	ErrArtifactNotFound   = fmt.Errorf("%w: artifact", ErrNotFound)
	ErrDatasetNotFound    = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrVariableNotFound   = fmt.Errorf("%w: variable", ErrNotFound)
	ErrValidatorNotFound  = fmt.Errorf("%w: validator", ErrNotFound)

	// Input errors
	ErrUnknownDomain    = errors.New("unknown domain tag")
	ErrNonFinite        = errors.New("non-finite numeric value")
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrNoEffectSize     = errors.New("no effect size derivable from parameters")

	// Data provenance errors
	ErrSyntheticData   = errors.New("synthetic data rejected")
	ErrUnverifiedData  = errors.New("dataset authenticity not verified")
	ErrReadOnlyDataset = errors.New("dataset references are read-only after start")

	// State machine errors
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrTerminalState     = errors.New("experiment already in terminal state")
)

// NewNotFoundError wraps ErrNotFound with resource context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewTransitionError wraps ErrInvalidTransition with the offending edge
func NewTransitionError(kind, from, to string) error {
	return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, kind, from, to)
}

// IsNotFoundError reports whether err is a not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsProvenanceError reports whether err is a dataset authenticity failure
func IsProvenanceError(err error) bool {
	return errors.Is(err, ErrSyntheticData) || errors.Is(err, ErrUnverifiedData)
}
