package lifecycle

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"hypogate/domain/core"
	"hypogate/domain/experiment"
)

// Tracker owns the status machine of one experiment. It is not safe for
// concurrent use; the orchestrator task handling the experiment owns it.
type Tracker struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewTracker starts a status machine for exp, resuming from its current status.
func NewTracker(machine *statekit.MachineConfig[*Context], exp *experiment.Experiment, clock core.Clock) (*Tracker, error) {
	ctx := &Context{Experiment: exp, Clock: clock}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	interp.Start()

	if exp.Status != "" && exp.Status != experiment.StatusPending {
		snapshot := statekit.Snapshot[*Context]{
			MachineID:    "experiment",
			CurrentState: statekit.StateID(exp.Status),
			Context:      ctx,
			CreatedAt:    time.Now(),
		}
		if err := interp.Restore(snapshot); err != nil {
			return nil, fmt.Errorf("failed to restore status %s: %w", exp.Status, err)
		}
	}
	return &Tracker{interp: interp, ctx: ctx}, nil
}

// Status returns the machine's current status.
func (t *Tracker) Status() experiment.Status {
	return experiment.Status(t.interp.State().Value)
}

// SetLatestPassed records the outcome of the most recent validation result.
func (t *Tracker) SetLatestPassed(passed bool) {
	t.ctx.LatestPassed = passed
}

// Transition moves the experiment to status to. Edges are pre-checked against
// the transition table so invalid requests return an error instead of being
// silently ignored by the interpreter.
func (t *Tracker) Transition(to experiment.Status, reason string) error {
	from := t.Status()
	if from == experiment.StatusRejected && to == experiment.StatusRejected {
		// repeated rejection on retry is a self-loop with no machine event
		t.ctx.History = append(t.ctx.History, Transition{From: from, To: to, Reason: reason, At: t.now()})
		return nil
	}
	if err := experiment.CheckTransition(from, to); err != nil {
		return err
	}
	if to == experiment.StatusGenerating && !t.ctx.LatestPassed {
		return core.NewTransitionError("status", string(from), string(to)+" without a passing validation")
	}

	t.interp.Send(statekit.Event{
		Type:    EventFor(to),
		Payload: TransitionPayload{To: to, Reason: reason},
	})
	if got := t.Status(); got != to {
		return core.NewTransitionError("status", string(from), string(to))
	}
	t.ctx.Experiment.Status = to
	return nil
}

// IsTerminal reports whether the machine reached a final state.
func (t *Tracker) IsTerminal() bool {
	return t.interp.Done() || t.Status().IsTerminal()
}

// History returns the recorded transitions.
func (t *Tracker) History() []Transition {
	out := make([]Transition, len(t.ctx.History))
	copy(out, t.ctx.History)
	return out
}

// Stop releases the interpreter.
func (t *Tracker) Stop() {
	t.interp.Stop()
}

func (t *Tracker) now() time.Time {
	if t.ctx.Clock != nil {
		return t.ctx.Clock()
	}
	return time.Now().UTC()
}
