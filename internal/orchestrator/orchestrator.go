// Package orchestrator drives experiments through the phase-gated pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/statekit"

	"hypogate/domain/artifacts"
	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/domain/phase"
	"hypogate/domain/validation"
	"hypogate/internal"
	"hypogate/internal/classifier"
	"hypogate/internal/config"
	"hypogate/internal/consistency"
	"hypogate/internal/errors"
	"hypogate/internal/lifecycle"
	"hypogate/internal/metrics"
	"hypogate/internal/report"
	"hypogate/internal/validator"
	"hypogate/ports"
)

// Deps are the collaborators of the orchestrator. Store, Datasets and
// Generator are required; nil optional collaborators skip their phase.
type Deps struct {
	Store      ports.ExperimentStore
	Datasets   ports.DatasetAccess
	Generator  ports.Generator
	Literature ports.LiteratureSource
	Enhancer   ports.Enhancer
	Corrector  ports.Corrector
	Reporter   ports.Reporter

	Registry   *validator.Registry
	Classifier *classifier.Classifier
	Checker    *consistency.Checker
	Renderer   *report.Renderer
	Metrics    *metrics.Metrics
	Logger     *internal.Logger
	Clock      core.Clock
}

// Orchestrator owns the phase sequence of every experiment it runs. The
// registry, classifier and checker are shared read-only; per-experiment
// state lives in a task that only the running goroutine touches.
type Orchestrator struct {
	engine  config.Engine
	deps    Deps
	machine *statekit.MachineConfig[*lifecycle.Context]
	logger  *internal.Logger
	clock   core.Clock

	mu       sync.Mutex
	inFlight map[core.ExperimentID]bool
	cancels  map[core.ExperimentID]bool
}

// Outcome is the result of driving one experiment to a terminal status.
type Outcome struct {
	Experiment  *experiment.Experiment         `json:"experiment"`
	Phases      *phase.StatusRecord            `json:"phases"`
	Results     []*validation.ValidationResult `json:"results"`
	Artifact    *artifacts.Artifact            `json:"artifact,omitempty"`
	Deliverable *artifacts.Artifact            `json:"deliverable,omitempty"`
	Failure     *report.FailureReport          `json:"failure,omitempty"`
	History     []lifecycle.Transition         `json:"history"`
	Err         error                          `json:"-"`
}

// Status is the terminal status the experiment reached.
func (o *Outcome) Status() experiment.Status {
	return o.Experiment.Status
}

// task is the per-experiment working set.
type task struct {
	exp        *experiment.Experiment
	record     *phase.StatusRecord
	tracker    *lifecycle.Tracker
	validator  validator.Validator
	run        config.Run
	literature *ports.LiteratureAssessment

	// certified is the parameter set of the passing pre-validation result.
	certified   map[string]float64
	certifiedBy *validation.ValidationResult
	lastGate    *validation.ValidationResult
	artifact    *artifacts.Artifact
	deliverable *artifacts.Artifact
	generations int
	feedback    []string
	results     []*validation.ValidationResult
	log         *internal.Logger
}

// New validates the engine config and fills in default collaborators.
func New(engine config.Engine, deps Deps) (*Orchestrator, error) {
	if err := engine.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Store == nil:
		return nil, errors.ConfigInvalid("orchestrator requires an experiment store")
	case deps.Datasets == nil:
		return nil, errors.ConfigInvalid("orchestrator requires dataset access")
	case deps.Generator == nil:
		return nil, errors.ConfigInvalid("orchestrator requires a generator")
	}
	if deps.Registry == nil {
		deps.Registry = validator.NewRegistry(nil, nil)
	}
	if deps.Classifier == nil {
		deps.Classifier = classifier.New(engine.ClassifierFloor)
	}
	if deps.Checker == nil {
		deps.Checker = consistency.NewChecker()
	}
	if deps.Renderer == nil {
		deps.Renderer = report.NewRenderer()
	}
	if deps.Logger == nil {
		deps.Logger = internal.NewNopLogger()
	}
	if deps.Clock == nil {
		deps.Clock = core.SystemClock
	}
	if deps.Corrector == nil {
		deps.Corrector = NewClampCorrector(deps.Clock)
	}

	machine, err := lifecycle.NewStatusMachine()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build status machine")
	}
	return &Orchestrator{
		engine:   engine,
		deps:     deps,
		machine:  machine,
		logger:   deps.Logger.Named("orchestrator"),
		clock:    deps.Clock,
		inFlight: make(map[core.ExperimentID]bool),
		cancels:  make(map[core.ExperimentID]bool),
	}, nil
}

// Engine returns the engine configuration the orchestrator runs with.
func (o *Orchestrator) Engine() config.Engine { return o.engine }

// Submit validates a configuration record and persists a pending experiment
// with every phase not_started. Invalid records are rejected with a
// CONFIGURATION_ERROR before any phase starts.
func (o *Orchestrator) Submit(ctx context.Context, rec *experiment.ConfigRecord) (*experiment.Experiment, error) {
	if err := config.ValidateRecord(rec); err != nil {
		return nil, err
	}
	if _, err := o.deps.Classifier.Classify(rec.Hypothesis, rec.DomainOverride); err != nil {
		return nil, err
	}
	exp := rec.ToExperiment(o.clock())
	if err := o.deps.Store.SaveExperiment(ctx, exp); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}
	for _, s := range phase.NewStatusRecord(exp.ID).States {
		if err := o.deps.Store.SavePhaseState(ctx, s); err != nil {
			return nil, errors.WithCode(errors.CodeDatabaseError, err)
		}
	}
	o.logger.Info("submitted experiment %s", exp.ID)
	return exp, nil
}

// Cancel requests cancellation. A running experiment stops at its next phase
// boundary; a pending one is cancelled immediately.
func (o *Orchestrator) Cancel(ctx context.Context, id core.ExperimentID) error {
	o.mu.Lock()
	if o.inFlight[id] {
		o.cancels[id] = true
		o.mu.Unlock()
		o.logger.Info("cancellation requested for running experiment %s", id)
		return nil
	}
	// hold the claim until the cancelled status is stored so no Run starts
	// from the stale record
	o.inFlight[id] = true
	o.mu.Unlock()
	defer o.release(id)

	exp, err := o.deps.Store.GetExperiment(ctx, id)
	if err != nil {
		return err
	}
	if err := experiment.CheckTransition(exp.Status, experiment.StatusCancelled); err != nil {
		return errors.WithCode(errors.CodeInvalidTransition, err)
	}
	exp.Status = experiment.StatusCancelled
	exp.UpdatedAt = o.clock()
	exp.Archived = true
	if err := o.deps.Store.SaveExperiment(ctx, exp); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	o.deps.Metrics.RecordTerminal(string(experiment.StatusCancelled))
	return nil
}

// Run drives a pending experiment through every phase until it reaches a
// terminal status. Gate and collaborator failures are reported in the
// Outcome; the returned error is reserved for store failures and misuse.
func (o *Orchestrator) Run(ctx context.Context, id core.ExperimentID) (*Outcome, error) {
	if !o.claim(id) {
		return nil, errors.Newf(errors.CodeInvalidTransition, "experiment %s is already running", id)
	}
	defer o.release(id)
	defer o.deps.Metrics.Begin()()

	exp, err := o.deps.Store.GetExperiment(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp.Status != experiment.StatusPending || exp.Started() {
		return nil, errors.WithCode(errors.CodeInvalidTransition,
			core.NewTransitionError("experiment", string(exp.Status), "run"))
	}

	tracker, err := lifecycle.NewTracker(o.machine, exp, o.clock)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start status machine")
	}
	defer tracker.Stop()

	t := &task{
		exp:     exp,
		record:  phase.NewStatusRecord(id),
		tracker: tracker,
		log:     o.logger.With("experiment", id.String()),
	}

	for _, s := range o.steps() {
		if o.cancelRequested(ctx, id) {
			return o.cancel(ctx, t, s.name)
		}
		err := o.runPhase(ctx, t, s)
		switch {
		case err == nil:
			continue
		case errors.HasCode(err, errors.CodeDatabaseError):
			return nil, err
		case errors.HasCode(err, errors.CodeCancelled):
			return o.cancel(ctx, t, s.name)
		default:
			return o.fail(ctx, t, err)
		}
	}
	return o.complete(ctx, t)
}

// runPhase executes one phase with its bounded retry loop.
func (o *Orchestrator) runPhase(ctx context.Context, t *task, s step) error {
	name := string(s.name)
	t.exp.CurrentPhase = name

	if s.skip != nil {
		if reason := s.skip(t); reason != "" {
			if err := t.record.Skip(s.name, reason, o.clock()); err != nil {
				return errors.Wrap(err, "failed to skip phase")
			}
			t.log.Info("phase %s skipped: %s", name, reason)
			o.deps.Metrics.RecordGate(name, "skipped")
			return o.persistPhase(ctx, t, s.name)
		}
	}

	for {
		if err := t.record.Start(s.name, o.clock()); err != nil {
			return errors.Wrap(err, "failed to start phase")
		}
		if err := o.persistPhase(ctx, t, s.name); err != nil {
			return err
		}
		t.log.Info("phase %s running", name)

		started := o.clock()
		err := s.run(ctx, t)
		o.deps.Metrics.ObservePhase(name, o.clock().Sub(started))

		if err == nil {
			if perr := t.record.Pass(s.name, o.clock()); perr != nil {
				return errors.Wrap(perr, "failed to pass phase")
			}
			o.deps.Metrics.RecordGate(name, "passed")
			t.log.Info("phase %s gate passed", name)
			return o.persistPhase(ctx, t, s.name)
		}

		err = errors.WithPhase(err, name)
		if errors.HasCode(err, errors.CodeDatabaseError) {
			return err
		}
		if !errors.IsRetryable(err) {
			return o.failPhase(ctx, t, s.name, err, "hard")
		}

		if gerr := t.record.GateFail(s.name, err.Error(), o.clock()); gerr != nil {
			return errors.Wrap(gerr, "failed to record gate failure")
		}
		o.deps.Metrics.RecordGate(name, "soft")
		state, _ := t.record.Get(s.name)
		if state.RetryCount >= o.engine.RetryLimit {
			exhausted := errors.Wrapf(err, "retry limit %d exhausted in %s", o.engine.RetryLimit, name)
			return o.failPhase(ctx, t, s.name, exhausted, "exhausted")
		}
		if perr := o.persistPhase(ctx, t, s.name); perr != nil {
			return perr
		}
		t.log.Warn("phase %s gate failed (attempt %d of %d): %v", name, state.RetryCount, o.engine.RetryLimit, err)

		if o.cancelRequested(ctx, t.exp.ID) {
			return o.failPhase(ctx, t, s.name, errors.Cancelled(name), "")
		}
		o.deps.Metrics.RecordRetry(name)
		if s.correct != nil {
			if cerr := s.correct(ctx, t, err); cerr != nil {
				cerr = errors.WithPhase(cerr, name)
				if !errors.IsRetryable(cerr) {
					return o.failPhase(ctx, t, s.name, cerr, "hard")
				}
				t.log.Warn("corrective step for %s failed, retrying anyway: %v", name, cerr)
			}
		}
	}
}

// failPhase marks the phase failed. outcome labels the gate metric; empty
// records nothing.
func (o *Orchestrator) failPhase(ctx context.Context, t *task, name phase.Name, cause error, outcome string) error {
	if err := t.record.Fail(name, cause.Error(), o.clock()); err != nil {
		t.log.Error("failed to mark phase %s failed: %v", name, err)
	}
	if outcome != "" && !errors.HasCode(cause, errors.CodeCancelled) {
		o.deps.Metrics.RecordGate(string(name), outcome)
	}
	if err := o.persistPhase(ctx, t, name); err != nil {
		return err
	}
	return cause
}

func (o *Orchestrator) fail(ctx context.Context, t *task, cause error) (*Outcome, error) {
	if !t.tracker.IsTerminal() {
		if err := t.tracker.Transition(experiment.StatusFailed, cause.Error()); err != nil {
			t.log.Error("status transition to failed refused: %v", err)
		}
	}
	t.exp.Archived = true
	if err := o.persistExperiment(ctx, t); err != nil {
		return nil, err
	}

	fr := report.NewFailureReport(t.exp, cause, t.results, o.clock())
	if md, err := o.deps.Renderer.Failure(fr); err != nil {
		t.log.Warn("failed to render failure report: %v", err)
	} else if err := o.saveReport(ctx, t, md); err != nil {
		return nil, err
	}

	t.log.Error("experiment failed in %s (%s): %v", fr.Phase, fr.Code, cause)
	o.deps.Metrics.RecordTerminal(string(experiment.StatusFailed))
	out := o.outcome(t)
	out.Failure = fr
	out.Err = cause
	return out, nil
}

func (o *Orchestrator) cancel(ctx context.Context, t *task, at phase.Name) (*Outcome, error) {
	if err := t.tracker.Transition(experiment.StatusCancelled, fmt.Sprintf("cancelled at %s", at)); err != nil {
		t.log.Error("status transition to cancelled refused: %v", err)
	}
	t.exp.Archived = true
	if err := o.persistExperiment(ctx, t); err != nil {
		return nil, err
	}
	t.log.Info("experiment cancelled at phase %s", at)
	o.deps.Metrics.RecordTerminal(string(experiment.StatusCancelled))
	out := o.outcome(t)
	out.Err = errors.Cancelled(string(at))
	return out, nil
}

func (o *Orchestrator) complete(ctx context.Context, t *task) (*Outcome, error) {
	if !t.record.Completed() {
		return o.fail(ctx, t, errors.InternalError("pipeline ended with unsettled phases"))
	}
	if err := t.tracker.Transition(experiment.StatusCompleted, "all phases settled"); err != nil {
		return o.fail(ctx, t, errors.Wrap(err, "failed to complete experiment"))
	}
	t.exp.Archived = true
	if err := o.persistExperiment(ctx, t); err != nil {
		return nil, err
	}
	t.log.Info("experiment completed after %d validation results", len(t.results))
	o.deps.Metrics.RecordTerminal(string(experiment.StatusCompleted))
	return o.outcome(t), nil
}

func (o *Orchestrator) outcome(t *task) *Outcome {
	return &Outcome{
		Experiment:  t.exp.Clone(),
		Phases:      t.record.Clone(),
		Results:     append([]*validation.ValidationResult(nil), t.results...),
		Artifact:    t.artifact,
		Deliverable: t.deliverable,
		History:     t.tracker.History(),
	}
}

func (o *Orchestrator) claim(id core.ExperimentID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[id] {
		return false
	}
	o.inFlight[id] = true
	return true
}

func (o *Orchestrator) release(id core.ExperimentID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, id)
	delete(o.cancels, id)
}

// cancelRequested reports a Cancel call or a cancelled run context.
func (o *Orchestrator) cancelRequested(ctx context.Context, id core.ExperimentID) bool {
	if ctx.Err() != nil {
		return true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancels[id]
}
