package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"

	"hypogate/domain/artifacts"
	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/domain/phase"
	"hypogate/domain/validation"
	"hypogate/internal/errors"
	"hypogate/internal/report"
	"hypogate/internal/scoring"
	"hypogate/internal/validator"
	"hypogate/ports"
)

// step binds a phase to its work. skip returns a non-empty reason when the
// phase has nothing to do; correct runs between a soft gate failure and the
// retry of the same phase.
type step struct {
	name    phase.Name
	skip    func(t *task) string
	run     func(ctx context.Context, t *task) error
	correct func(ctx context.Context, t *task, cause error) error
}

func (o *Orchestrator) steps() []step {
	return []step{
		{name: phase.NoveltyGeneration, skip: o.skipNovelty, run: o.noveltyGeneration},
		{name: phase.Preparation, run: o.preparation},
		{name: phase.Enhancement, skip: o.skipEnhancement, run: o.enhancement},
		{name: phase.PreValidationGate, run: o.preValidation, correct: o.correctParameters},
		{name: phase.Generation, run: o.generation},
		{name: phase.PostValidationGate, run: o.postValidation, correct: o.regenerate},
		{name: phase.DeliverableCompilation, run: o.deliverableCompilation},
	}
}

func (o *Orchestrator) skipNovelty(*task) string {
	if o.deps.Literature == nil {
		return "no literature source configured"
	}
	return ""
}

func (o *Orchestrator) noveltyGeneration(ctx context.Context, t *task) error {
	callCtx, cancel := context.WithTimeout(ctx, o.engine.CollaboratorTimeout)
	defer cancel()

	lit, err := o.deps.Literature.Assess(callCtx, t.exp.Clone())
	if err != nil {
		return collaboratorError(string(phase.NoveltyGeneration), "literature", callCtx, err)
	}
	if lit == nil {
		return errors.ExternalServiceError("literature", stderrors.New("empty assessment"))
	}
	lit.Support = clamp01(lit.Support)
	lit.Novelty = clamp01(lit.Novelty)
	t.literature = lit
	t.log.Debug("literature support %.3f novelty %.3f (%d citations)", lit.Support, lit.Novelty, len(lit.Citations))
	return nil
}

func (o *Orchestrator) preparation(ctx context.Context, t *task) error {
	cls, err := o.deps.Classifier.ClassifyExperiment(t.exp)
	if err != nil {
		return err
	}
	v, err := o.deps.Registry.Get(cls.Domain)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	t.exp.Domain = cls.Domain
	t.exp.UpdatedAt = o.clock()
	t.validator = v
	t.run = o.engine.ForExperiment(t.exp)
	t.log.Info("classified as %s (confidence %.2f, override %t)", cls.Domain, cls.Confidence, cls.Overridden)
	return o.persistExperiment(ctx, t)
}

func (o *Orchestrator) skipEnhancement(*task) string {
	if o.deps.Enhancer == nil {
		return "no enhancer configured"
	}
	return ""
}

func (o *Orchestrator) enhancement(ctx context.Context, t *task) error {
	callCtx, cancel := context.WithTimeout(ctx, o.engine.CollaboratorTimeout)
	defer cancel()

	enh, err := o.deps.Enhancer.Enhance(callCtx, t.exp.Clone())
	if err != nil {
		return collaboratorError(string(phase.Enhancement), "enhancer", callCtx, err)
	}
	if enh == nil {
		return nil
	}
	if enh.Hypothesis != "" {
		t.exp.Hypothesis = enh.Hypothesis
	}
	for _, name := range sortedKeys(enh.Parameters) {
		value := enh.Parameters[name]
		if !validation.IsFinite(value) {
			return errors.ExternalPermanentError("enhancer", fmt.Errorf("non-finite value for %s", name))
		}
		if err := t.exp.SetParameter(name, value, o.clock()); err != nil {
			return errors.Wrap(err, "failed to apply enhancement")
		}
	}
	t.log.Debug("enhancement applied %d parameter updates", len(enh.Parameters))
	return o.persistExperiment(ctx, t)
}

// preValidation fetches evidence, validates and moves the experiment status
// to validated or rejected.
func (o *Orchestrator) preValidation(ctx context.Context, t *task) error {
	t.lastGate = nil
	ev, err := o.collectEvidence(ctx, t)
	if err != nil {
		return err
	}

	res := t.validator.Validate(t.exp, ev, t.run)
	if err := o.appendResult(ctx, t, res, phase.PreValidationGate); err != nil {
		return err
	}
	t.lastGate = res
	t.tracker.SetLatestPassed(res.Passed)

	if res.Passed {
		if err := t.tracker.Transition(experiment.StatusValidated, "pre-validation gate passed"); err != nil {
			return errors.WithCode(errors.CodeInvalidTransition, err)
		}
		t.certified = copyParams(t.exp.Parameters)
		t.certifiedBy = res
		return o.persistExperiment(ctx, t)
	}

	if err := t.tracker.Transition(experiment.StatusRejected, string(res.Failure)); err != nil {
		return errors.WithCode(errors.CodeInvalidTransition, err)
	}
	if err := o.persistExperiment(ctx, t); err != nil {
		return err
	}
	return resultError(res)
}

// collectEvidence fetches the series of every referenced dataset. Permanent
// fetch failures leave the series empty so the validator decides whether the
// gap is an authenticity or an insufficient-data failure.
func (o *Orchestrator) collectEvidence(ctx context.Context, t *task) (validator.Evidence, error) {
	ev := validator.Evidence{Literature: t.literature}
	for _, ref := range t.exp.Datasets {
		variable := ref.Variable
		if variable == "" {
			variable = t.validator.DefaultVariable()
		}

		callCtx, cancel := context.WithTimeout(ctx, o.engine.CollaboratorTimeout)
		series, err := o.deps.Datasets.FetchSeries(callCtx, ref, variable)
		if err != nil {
			mapped := collaboratorError(string(phase.PreValidationGate), "dataset", callCtx, err)
			cancel()
			if errors.IsRetryable(mapped) || errors.HasCode(mapped, errors.CodeCancelled) {
				return ev, mapped
			}
			t.log.Warn("dataset %s/%s unavailable: %v", ref.Source, variable, err)
			series = nil
		} else {
			cancel()
		}
		ev.Datasets = append(ev.Datasets, validator.DatasetEvidence{Reference: ref, Series: series})
	}
	ev.CollectedAt = o.clock()
	return ev, nil
}

// correctParameters hands the last soft result to the corrector.
func (o *Orchestrator) correctParameters(ctx context.Context, t *task, _ error) error {
	if t.lastGate == nil || t.lastGate.HasHard() {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, o.engine.CollaboratorTimeout)
	defer cancel()

	changed, err := o.deps.Corrector.Correct(callCtx, t.exp, t.lastGate)
	if err != nil {
		return collaboratorError(string(phase.PreValidationGate), "corrector", callCtx, err)
	}
	if len(changed) == 0 {
		t.log.Warn("corrector proposed no parameter changes")
		return nil
	}
	for _, name := range sortedKeys(changed) {
		t.log.Info("corrected %s -> %g", name, changed[name])
	}
	return o.persistExperiment(ctx, t)
}

func (o *Orchestrator) generation(ctx context.Context, t *task) error {
	if t.tracker.Status() != experiment.StatusGenerating {
		if err := t.tracker.Transition(experiment.StatusGenerating, "certified parameters handed to generator"); err != nil {
			return errors.WithCode(errors.CodeInvalidTransition, err)
		}
		if err := o.persistExperiment(ctx, t); err != nil {
			return err
		}
	}
	return o.generate(ctx, t, phase.Generation)
}

// generate issues the paid generation call. The call is detached from run
// cancellation and bounded only by the generation timeout, so a cancel
// request waits for the result.
func (o *Orchestrator) generate(ctx context.Context, t *task, at phase.Name) error {
	req := ports.GenerationRequest{
		ExperimentID: t.exp.ID,
		Domain:       t.exp.Domain,
		Hypothesis:   t.exp.Hypothesis,
		Parameters:   copyParams(t.certified),
		Attempt:      t.generations + 1,
		Feedback:     append([]string(nil), t.feedback...),
	}

	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.engine.GenerationTimeout)
	defer cancel()
	t.generations++

	art, err := o.deps.Generator.Generate(genCtx, req)
	if err != nil {
		return collaboratorError(string(at), "generator", genCtx, err)
	}
	if art == nil {
		return errors.ExternalServiceError("generator", stderrors.New("no artifact returned"))
	}
	if art.ID == "" {
		art.ID = core.NewArtifactID()
	}
	if art.Kind == "" {
		art.Kind = artifacts.KindMarkdown
	}
	art.ExperimentID = t.exp.ID
	art.Audit.Attempt = req.Attempt
	if art.CreatedAt.IsZero() {
		art.CreatedAt = o.clock()
	}
	if err := art.Validate(); err != nil {
		return errors.ExternalServiceError("generator", err)
	}
	if err := o.deps.Store.SaveArtifact(context.WithoutCancel(ctx), art); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	t.artifact = art
	t.log.Info("artifact %s generated (attempt %d, %d declared claims)", art.ID, req.Attempt, len(art.Claims))
	return nil
}

// postValidation checks the artifact against the certified parameters and
// records the outcome as a validation result of the post gate.
func (o *Orchestrator) postValidation(ctx context.Context, t *task) error {
	if t.artifact == nil {
		return errors.InternalError("post-validation without an artifact")
	}
	rep := o.deps.Checker.Check(t.artifact, t.certified, t.validator, t.run)
	violations := rep.AsViolations()
	validation.SortViolations(violations)

	res := &validation.ValidationResult{
		ExperimentID: t.exp.ID,
		Domain:       t.exp.Domain,
		Passed:       rep.Passed,
		Violations:   violations,
		Scores:       validation.Scores{},
		Fingerprint:  t.exp.Fingerprint(),
		Timestamp:    o.clock(),
	}
	if t.certifiedBy != nil {
		for c, v := range t.certifiedBy.Scores {
			res.Scores[c] = v
		}
		res.Composite = t.certifiedBy.Composite
	}
	if !rep.Passed {
		res.Failure = scoring.ClassifyFailure(violations, false)
		res.Detail = fmt.Sprintf("%d of %d claims diverge from certified parameters", len(rep.Divergences), len(rep.Claims))
	}
	if err := o.appendResult(ctx, t, res, phase.PostValidationGate); err != nil {
		return err
	}
	if rep.Passed {
		t.feedback = nil
		return nil
	}

	t.feedback = t.feedback[:0]
	for _, v := range violations {
		t.feedback = append(t.feedback, v.String())
	}
	return resultError(res)
}

// regenerate is the corrective step of the post gate: a new artifact is
// requested with the divergences as feedback.
func (o *Orchestrator) regenerate(ctx context.Context, t *task, _ error) error {
	return o.generate(ctx, t, phase.PostValidationGate)
}

func (o *Orchestrator) deliverableCompilation(ctx context.Context, t *task) error {
	md, err := o.deps.Renderer.Deliverable(report.Deliverable{
		Experiment: t.exp,
		Phases:     t.record,
		Results:    t.results,
		Artifact:   t.artifact,
	})
	if err != nil {
		return errors.Wrap(err, "failed to compile deliverable")
	}
	if err := o.saveReport(ctx, t, md); err != nil {
		return err
	}
	if o.deps.Reporter == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, o.engine.CollaboratorTimeout)
	defer cancel()
	if err := o.deps.Reporter.Publish(callCtx, t.deliverable); err != nil {
		return collaboratorError(string(phase.DeliverableCompilation), "reporter", callCtx, err)
	}
	return nil
}

func (o *Orchestrator) saveReport(ctx context.Context, t *task, md string) error {
	art := &artifacts.Artifact{
		ID:           core.NewArtifactID(),
		ExperimentID: t.exp.ID,
		Kind:         artifacts.KindReport,
		Content:      md,
		Audit:        artifacts.GenerationAudit{GeneratorType: "report", Attempt: 1},
		CreatedAt:    o.clock(),
	}
	if err := o.deps.Store.SaveArtifact(context.WithoutCancel(ctx), art); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	t.deliverable = art
	return nil
}

// appendResult stamps identity, attempt and stage onto res and persists it.
func (o *Orchestrator) appendResult(ctx context.Context, t *task, res *validation.ValidationResult, at phase.Name) error {
	state, err := t.record.Get(at)
	if err != nil {
		return errors.Wrap(err, "unknown phase")
	}
	res.ID = core.NewResultID()
	res.Attempt = state.RetryCount + 1
	res.Stage = string(at)
	t.results = append(t.results, res)
	if err := o.deps.Store.AppendValidation(context.WithoutCancel(ctx), res); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	o.deps.Metrics.ObserveComposite(string(res.Domain), res.Composite)
	t.log.Debug("%s attempt %d: passed=%t composite=%.3f violations=%d",
		at, res.Attempt, res.Passed, res.Composite, len(res.Violations))
	return nil
}

// persistPhase writes the phase state and the experiment. Persistence is
// detached from run cancellation so a cancelled run still records its state.
func (o *Orchestrator) persistPhase(ctx context.Context, t *task, name phase.Name) error {
	state, err := t.record.Get(name)
	if err != nil {
		return errors.Wrap(err, "unknown phase")
	}
	if err := o.deps.Store.SavePhaseState(context.WithoutCancel(ctx), *state); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	return o.persistExperiment(ctx, t)
}

func (o *Orchestrator) persistExperiment(ctx context.Context, t *task) error {
	if err := o.deps.Store.SaveExperiment(context.WithoutCancel(ctx), t.exp); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	return nil
}

// resultError converts a failed validation result into the error taxonomy.
func resultError(res *validation.ValidationResult) error {
	criterion, message := failingCriterion(res)
	switch res.Failure {
	case validation.FailureAuthenticity:
		return errors.DataAuthenticity(criterion, stderrors.New(message))
	case validation.FailurePlausibilityTrap:
		snr, floor := 0.0, 0.0
		if res.SNRdB != nil {
			snr = *res.SNRdB
		}
		if res.SNRFloorDB != nil {
			floor = *res.SNRFloorDB
		}
		return errors.PlausibilityTrap(snr, floor)
	case validation.FailureHardPhysical:
		return errors.HardPhysical(criterion, message)
	case validation.FailureConfiguration:
		err := errors.ConfigInvalid(message)
		err.Criterion = criterion
		return err
	default:
		return errors.SoftViolation(criterion, message)
	}
}

// failingCriterion names the first violation consistent with the failure
// kind. Violations are sorted hard first.
func failingCriterion(res *validation.ValidationResult) (string, string) {
	if res.Failure == validation.FailureConfiguration {
		return "configuration", res.Detail
	}
	for _, v := range res.Violations {
		if res.Failure == validation.FailureSoft && v.IsHard() {
			continue
		}
		return v.Parameter, v.Message
	}
	if res.Detail != "" {
		return "composite", res.Detail
	}
	return "composite", fmt.Sprintf("validation failed: %s", res.Failure)
}

// collaboratorError maps a collaborator failure onto the error taxonomy:
// timeouts and retryable tags are soft, cancellation is reported as such,
// everything else is permanent.
func collaboratorError(at, collaborator string, callCtx context.Context, err error) error {
	switch {
	case errors.IsAppError(err):
		return err
	case stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(callCtx.Err(), context.DeadlineExceeded):
		return errors.PhaseTimeout(at, fmt.Errorf("%s: %w", collaborator, err))
	case stderrors.Is(err, context.Canceled):
		return errors.Cancelled(at)
	case ports.TagOf(err) == ports.TagRetryable:
		return errors.ExternalServiceError(collaborator, err)
	default:
		return errors.ExternalPermanentError(collaborator, err)
	}
}
