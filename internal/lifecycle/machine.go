// Package lifecycle drives experiment status through a statekit statechart.
package lifecycle

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"hypogate/domain/core"
	"hypogate/domain/experiment"
)

// Context carries the experiment through the status machine.
type Context struct {
	Experiment   *experiment.Experiment
	LatestPassed bool
	History      []Transition
	Clock        core.Clock
}

// Transition is one recorded status change.
type Transition struct {
	From   experiment.Status `json:"from"`
	To     experiment.Status `json:"to"`
	Reason string            `json:"reason,omitempty"`
	At     time.Time         `json:"at"`
}

// TransitionPayload is sent with every event.
type TransitionPayload struct {
	To     experiment.Status
	Reason string
}

const (
	statePending    = statekit.StateID(experiment.StatusPending)
	stateValidated  = statekit.StateID(experiment.StatusValidated)
	stateRejected   = statekit.StateID(experiment.StatusRejected)
	stateGenerating = statekit.StateID(experiment.StatusGenerating)
	stateCompleted  = statekit.StateID(experiment.StatusCompleted)
	stateFailed     = statekit.StateID(experiment.StatusFailed)
	stateCancelled  = statekit.StateID(experiment.StatusCancelled)
)

// Events
const (
	EventValidated statekit.EventType = "VALIDATED"
	EventRejected  statekit.EventType = "REJECTED"
	EventGenerate  statekit.EventType = "GENERATE"
	EventComplete  statekit.EventType = "COMPLETE"
	EventFail      statekit.EventType = "FAIL"
	EventCancel    statekit.EventType = "CANCEL"
)

// NewStatusMachine builds the experiment status statechart. The edges mirror
// experiment.CheckTransition; generating is additionally guarded on the
// latest validation result having passed.
func NewStatusMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("experiment").
		WithInitial(statePending).
		WithContext(&Context{}).
		WithAction("recordTransition", recordTransition).
		WithGuard("latestPassed", guardLatestPassed).
		State(statePending).
			On(EventValidated).Target(stateValidated).Do("recordTransition").
			On(EventRejected).Target(stateRejected).Do("recordTransition").
			On(EventFail).Target(stateFailed).Do("recordTransition").
			On(EventCancel).Target(stateCancelled).Do("recordTransition").
			Done().
		State(stateRejected).
			On(EventValidated).Target(stateValidated).Do("recordTransition").
			On(EventFail).Target(stateFailed).Do("recordTransition").
			On(EventCancel).Target(stateCancelled).Do("recordTransition").
			Done().
		State(stateValidated).
			On(EventGenerate).Target(stateGenerating).Guard("latestPassed").Do("recordTransition").
			On(EventFail).Target(stateFailed).Do("recordTransition").
			On(EventCancel).Target(stateCancelled).Do("recordTransition").
			Done().
		State(stateGenerating).
			On(EventComplete).Target(stateCompleted).Do("recordTransition").
			On(EventFail).Target(stateFailed).Do("recordTransition").
			On(EventCancel).Target(stateCancelled).Do("recordTransition").
			Done().
		State(stateCompleted).Final().Done().
		State(stateFailed).Final().Done().
		State(stateCancelled).Final().Done().
		Build()
}

// EventFor returns the event that moves the machine into status to.
func EventFor(to experiment.Status) statekit.EventType {
	switch to {
	case experiment.StatusValidated:
		return EventValidated
	case experiment.StatusRejected:
		return EventRejected
	case experiment.StatusGenerating:
		return EventGenerate
	case experiment.StatusCompleted:
		return EventComplete
	case experiment.StatusFailed:
		return EventFail
	case experiment.StatusCancelled:
		return EventCancel
	default:
		return statekit.EventType(to)
	}
}

func guardLatestPassed(ctx *Context, _ statekit.Event) bool {
	return ctx != nil && ctx.LatestPassed
}

// recordTransition updates the experiment status and appends to the history.
// In statekit, actions receive a pointer to the context.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Experiment == nil {
		return
	}
	c := *ctx
	payload, ok := event.Payload.(TransitionPayload)
	if !ok {
		return
	}
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock()
	}
	c.History = append(c.History, Transition{
		From:   c.Experiment.Status,
		To:     payload.To,
		Reason: payload.Reason,
		At:     now,
	})
	c.Experiment.Status = payload.To
	c.Experiment.UpdatedAt = now
}
