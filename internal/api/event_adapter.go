package api

import (
	"context"

	"hypogate/internal/errors"
	"hypogate/internal/orchestrator"
)

// ForwardResults broadcasts every dispatcher result to the hub until
// results is closed or ctx ends.
func ForwardResults(ctx context.Context, results <-chan orchestrator.Result, hub *EventHub) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			hub.Broadcast(resultEvent(res))
		}
	}
}

func resultEvent(res orchestrator.Result) Event {
	ev := Event{
		ExperimentID: res.ExperimentID.String(),
		EventType:    "experiment_finished",
		Data:         map[string]interface{}{"duration_ms": res.Duration.Milliseconds()},
	}
	if res.Err != nil {
		ev.EventType = "experiment_aborted"
		ev.Data["code"] = errors.GetCode(res.Err)
		ev.Data["error"] = res.Err.Error()
		return ev
	}
	if res.Outcome != nil {
		ev.Status = string(res.Outcome.Status())
		if res.Outcome.Experiment != nil {
			ev.Phase = res.Outcome.Experiment.CurrentPhase
		}
		if res.Outcome.Failure != nil {
			ev.Data["code"] = res.Outcome.Failure.Code
			ev.Data["criterion"] = res.Outcome.Failure.Criterion
		}
	}
	return ev
}
