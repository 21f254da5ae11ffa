package orchestrator

import (
	"context"

	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/domain/phase"
	"hypogate/internal/errors"
	"hypogate/internal/report"
	"hypogate/ports"
)

// Recover settles experiments a previous process left non-terminal and
// returns the ids that can be queued. Pending experiments that never
// started a phase are returned as is. Every other non-terminal experiment
// is failed with RUN_INTERRUPTED and a failure report: a generation call
// may already have been issued, so the pipeline is not replayed.
func (o *Orchestrator) Recover(ctx context.Context) ([]core.ExperimentID, error) {
	exps, err := o.deps.Store.ListExperiments(ctx, ports.ListFilter{})
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}

	var runnable []core.ExperimentID
	for _, exp := range exps {
		if exp.Status.IsTerminal() || !o.claim(exp.ID) {
			continue
		}
		if exp.Status == experiment.StatusPending && !exp.Started() {
			o.release(exp.ID)
			runnable = append(runnable, exp.ID)
			continue
		}
		err := o.abandon(ctx, exp)
		o.release(exp.ID)
		if err != nil {
			return runnable, err
		}
	}
	return runnable, nil
}

// abandon fails an interrupted experiment and its open phase.
func (o *Orchestrator) abandon(ctx context.Context, exp *experiment.Experiment) error {
	log := o.logger.With("experiment", exp.ID.String())
	now := o.clock()
	cause := errors.Interrupted(exp.CurrentPhase)

	rec, err := o.deps.Store.GetPhaseRecord(ctx, exp.ID)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	if cur := rec.Current(); cur != nil && (cur.Status == phase.StatusRunning || cur.Status == phase.StatusGateFailed) {
		if err := rec.Fail(cur.Phase, cause.Message, now); err != nil {
			return errors.Wrap(err, "failed to close interrupted phase")
		}
		state, _ := rec.Get(cur.Phase)
		if err := o.deps.Store.SavePhaseState(ctx, *state); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, err)
		}
	}

	if err := experiment.CheckTransition(exp.Status, experiment.StatusFailed); err != nil {
		return errors.WithCode(errors.CodeInvalidTransition, err)
	}
	exp.Status = experiment.StatusFailed
	exp.Archived = true
	exp.UpdatedAt = now
	if err := o.deps.Store.SaveExperiment(ctx, exp); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}

	history, err := o.deps.Store.ListValidations(ctx, exp.ID)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	fr := report.NewFailureReport(exp, cause, history, now)
	if md, err := o.deps.Renderer.Failure(fr); err != nil {
		log.Warn("failed to render failure report: %v", err)
	} else if err := o.saveReport(ctx, &task{exp: exp}, md); err != nil {
		return err
	}
	log.Warn("experiment interrupted in %s marked failed", fr.Phase)
	o.deps.Metrics.RecordTerminal(string(experiment.StatusFailed))
	return nil
}
