// Package phase defines the fixed, ordered pipeline phases and the
// per-phase state machine the orchestrator drives.
package phase

import (
	"fmt"
	"time"

	"hypogate/domain/core"
)

// Name identifies a pipeline phase.
type Name string

const (
	NoveltyGeneration      Name = "novelty_generation"
	Preparation            Name = "preparation"
	Enhancement            Name = "enhancement"
	PreValidationGate      Name = "pre_validation_gate"
	Generation             Name = "generation"
	PostValidationGate     Name = "post_validation_gate"
	DeliverableCompilation Name = "deliverable_compilation"
)

var ordered = []Name{
	NoveltyGeneration,
	Preparation,
	Enhancement,
	PreValidationGate,
	Generation,
	PostValidationGate,
	DeliverableCompilation,
}

// Ordered returns the phase list in execution order.
func Ordered() []Name {
	out := make([]Name, len(ordered))
	copy(out, ordered)
	return out
}

// Index returns the position of n in the ordered list, or -1.
func (n Name) Index() int {
	for i, p := range ordered {
		if p == n {
			return i
		}
	}
	return -1
}

// IsGate reports whether the phase's check is an Acceptance Scorer or
// Consistency Checker invocation.
func (n Name) IsGate() bool { return n == PreValidationGate || n == PostValidationGate }

func (n Name) String() string { return string(n) }

// Status is the status of one phase for one experiment.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusGatePassed Status = "gate_passed"
	StatusGateFailed Status = "gate_failed"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// transitions is the fixed phase transition table.
var transitions = map[Status][]Status{
	StatusNotStarted: {StatusRunning, StatusSkipped},
	StatusRunning:    {StatusGatePassed, StatusGateFailed, StatusFailed, StatusSkipped},
	StatusGateFailed: {StatusRunning, StatusFailed},
}

// IsSettled reports whether the phase lets its successor start.
func (s Status) IsSettled() bool { return s == StatusGatePassed || s == StatusSkipped }

// IsTerminal reports whether the phase status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusGatePassed || s == StatusSkipped || s == StatusFailed
}

// Transition checks from -> to against the transition table.
func Transition(from, to Status) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return core.NewTransitionError("phase", string(from), string(to))
}

// CanStart reports whether a phase whose predecessor is prev may enter running.
// A nil predecessor means the first phase.
func CanStart(prev *State) bool {
	return prev == nil || prev.Status.IsSettled()
}

// State is the PhaseState of one (experiment, phase) pair.
type State struct {
	ExperimentID core.ExperimentID `json:"experiment_id" db:"experiment_id"`
	Phase        Name              `json:"phase" db:"phase"`
	Status       Status            `json:"status" db:"status"`
	EnteredAt    *time.Time        `json:"entered_at,omitempty" db:"entered_at"`
	ExitedAt     *time.Time        `json:"exited_at,omitempty" db:"exited_at"`
	RetryCount   int               `json:"retry_count" db:"retry_count"`
	Detail       string            `json:"detail,omitempty" db:"detail"`
}

// apply moves the state to `to`, maintaining entry/exit times and the retry count.
func (s *State) apply(to Status, now time.Time) error {
	if err := Transition(s.Status, to); err != nil {
		return fmt.Errorf("%s: %w", s.Phase, err)
	}
	t := now
	switch to {
	case StatusRunning:
		s.EnteredAt = &t
		s.ExitedAt = nil
	case StatusGateFailed:
		s.RetryCount++
		s.ExitedAt = &t
	default:
		s.ExitedAt = &t
	}
	s.Status = to
	return nil
}

// Duration returns time spent in the most recent run, zero if not exited.
func (s *State) Duration() time.Duration {
	if s.EnteredAt == nil || s.ExitedAt == nil {
		return 0
	}
	return s.ExitedAt.Sub(*s.EnteredAt)
}
