package experiment

import (
	"fmt"

	"hypogate/domain/core"
)

// Status is the overall lifecycle status of an experiment.
type Status string

const (
	StatusPending    Status = "pending"
	StatusValidated  Status = "validated"
	StatusRejected   Status = "rejected"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

func (s Status) String() string { return string(s) }

// statusTransitions is the fixed transition table for experiment status.
// Entering generating additionally requires the latest validation to pass,
// which is enforced by the lifecycle machine guard.
var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusValidated, StatusRejected, StatusFailed, StatusCancelled},
	StatusRejected:   {StatusValidated, StatusRejected, StatusFailed, StatusCancelled},
	StatusValidated:  {StatusGenerating, StatusFailed, StatusCancelled},
	StatusGenerating: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether from -> to is in the status table.
func CanTransition(from, to Status) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition (or ErrTerminalState) for edges
// that are not allowed.
func CheckTransition(from, to Status) error {
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s", core.ErrTerminalState, from)
	}
	if !CanTransition(from, to) {
		return core.NewTransitionError("status", string(from), string(to))
	}
	return nil
}
