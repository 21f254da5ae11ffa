package phase

import (
	"fmt"
	"time"

	"hypogate/domain/core"
)

// StatusRecord is the ordered list of PhaseStates for one experiment. It is
// the record external dashboards poll.
type StatusRecord struct {
	ExperimentID core.ExperimentID `json:"experiment_id"`
	States       []State           `json:"states"`
}

// NewStatusRecord creates a record with every phase not_started.
func NewStatusRecord(id core.ExperimentID) *StatusRecord {
	r := &StatusRecord{ExperimentID: id, States: make([]State, len(ordered))}
	for i, n := range ordered {
		r.States[i] = State{ExperimentID: id, Phase: n, Status: StatusNotStarted}
	}
	return r
}

// Get returns the state of phase n.
func (r *StatusRecord) Get(n Name) (*State, error) {
	i := n.Index()
	if i < 0 || i >= len(r.States) {
		return nil, fmt.Errorf("%w: phase %q", core.ErrNotFound, n)
	}
	return &r.States[i], nil
}

func (r *StatusRecord) predecessor(n Name) *State {
	i := n.Index()
	if i <= 0 {
		return nil
	}
	return &r.States[i-1]
}

// Start moves phase n to running. It refuses unless the predecessor is
// gate_passed or skipped.
func (r *StatusRecord) Start(n Name, now time.Time) error {
	s, err := r.Get(n)
	if err != nil {
		return err
	}
	if !CanStart(r.predecessor(n)) {
		return core.NewTransitionError("phase", string(n), "running before predecessor settled")
	}
	return s.apply(StatusRunning, now)
}

// Skip marks phase n skipped. Like Start, it requires a settled predecessor.
func (r *StatusRecord) Skip(n Name, detail string, now time.Time) error {
	s, err := r.Get(n)
	if err != nil {
		return err
	}
	if !CanStart(r.predecessor(n)) {
		return core.NewTransitionError("phase", string(n), "skipped before predecessor settled")
	}
	s.Detail = detail
	return s.apply(StatusSkipped, now)
}

// Pass marks a running phase gate_passed.
func (r *StatusRecord) Pass(n Name, now time.Time) error {
	return r.finish(n, StatusGatePassed, "", now)
}

// GateFail marks a running phase gate_failed and bumps its retry count.
func (r *StatusRecord) GateFail(n Name, detail string, now time.Time) error {
	return r.finish(n, StatusGateFailed, detail, now)
}

// Fail marks phase n failed. Legal from running or gate_failed.
func (r *StatusRecord) Fail(n Name, detail string, now time.Time) error {
	return r.finish(n, StatusFailed, detail, now)
}

func (r *StatusRecord) finish(n Name, to Status, detail string, now time.Time) error {
	s, err := r.Get(n)
	if err != nil {
		return err
	}
	if detail != "" {
		s.Detail = detail
	}
	return s.apply(to, now)
}

// Current returns the furthest phase that has left not_started, or nil.
func (r *StatusRecord) Current() *State {
	var cur *State
	for i := range r.States {
		if r.States[i].Status != StatusNotStarted {
			cur = &r.States[i]
		}
	}
	return cur
}

// Completed reports whether every phase is gate_passed or skipped.
func (r *StatusRecord) Completed() bool {
	for _, s := range r.States {
		if !s.Status.IsSettled() {
			return false
		}
	}
	return true
}

// Summary gives counts by status for dashboards.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
	Retries int `json:"retries_used"`
}

// Summarize computes counts over the record.
func (r *StatusRecord) Summarize() Summary {
	sum := Summary{Total: len(r.States)}
	for _, s := range r.States {
		switch s.Status {
		case StatusGatePassed:
			sum.Passed++
		case StatusSkipped:
			sum.Skipped++
		case StatusFailed:
			sum.Failed++
		default:
			sum.Pending++
		}
		sum.Retries += s.RetryCount
	}
	return sum
}

// Clone deep-copies the record.
func (r *StatusRecord) Clone() *StatusRecord {
	c := &StatusRecord{ExperimentID: r.ExperimentID, States: make([]State, len(r.States))}
	copy(c.States, r.States)
	for i := range c.States {
		if e := c.States[i].EnteredAt; e != nil {
			t := *e
			c.States[i].EnteredAt = &t
		}
		if x := c.States[i].ExitedAt; x != nil {
			t := *x
			c.States[i].ExitedAt = &t
		}
	}
	return c
}
