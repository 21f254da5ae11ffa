package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypogate/domain/artifacts"
	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/domain/phase"
	"hypogate/domain/validation"
	"hypogate/internal/errors"
	"hypogate/internal/migration"
	"hypogate/ports"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newExperiment(t *testing.T, s *Store, created time.Time) *experiment.Experiment {
	t.Helper()
	exp := experiment.New("", "Sulfuric acid concentration controls droplet growth",
		map[string]float64{"concentration": 75, "temperature": 220},
		[]experiment.DatasetReference{{Source: "noaa", Variable: "concentration", Authentic: true}}, created)
	novelty := 0.7
	exp.Novelty = &novelty
	floor := -12.0
	exp.Thresholds.SNRFloorDB = &floor
	exp.Strictness.RealDataMandatory = true
	require.NoError(t, s.SaveExperiment(context.Background(), exp))
	return exp
}

func TestExperimentRoundTripAndUpdate(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := newExperiment(t, s, created)

	got, err := s.GetExperiment(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, exp.Parameters, got.Parameters)
	assert.Equal(t, exp.Datasets, got.Datasets)
	assert.Equal(t, -12.0, *got.Thresholds.SNRFloorDB)
	assert.True(t, got.Strictness.RealDataMandatory)
	assert.Equal(t, 0.7, *got.Novelty)
	assert.True(t, created.Equal(got.CreatedAt))

	exp.Status = experiment.StatusValidated
	exp.Domain = experiment.DomainChemicalComposition
	exp.CurrentPhase = string(phase.PreValidationGate)
	require.NoError(t, s.SaveExperiment(ctx, exp))

	got, err = s.GetExperiment(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusValidated, got.Status)
	assert.Equal(t, experiment.DomainChemicalComposition, got.Domain)
	assert.Equal(t, string(phase.PreValidationGate), got.CurrentPhase)

	_, err = s.GetExperiment(ctx, core.NewExperimentID())
	assert.True(t, core.IsNotFoundError(err))
}

func TestListExperimentsFiltersArchived(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := newExperiment(t, s, base)
	second := newExperiment(t, s, base.Add(time.Minute))
	third := newExperiment(t, s, base.Add(2*time.Minute))
	require.NoError(t, s.Archive(ctx, second.ID))

	listed, err := s.ListExperiments(ctx, ports.ListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, third.ID, listed[1].ID)

	listed, err = s.ListExperiments(ctx, ports.ListFilter{IncludeArchived: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[1].ID)
	assert.True(t, listed[1].Archived)

	listed, err = s.ListExperiments(ctx, ports.ListFilter{Status: experiment.StatusCompleted, IncludeArchived: true})
	require.NoError(t, err)
	assert.Empty(t, listed)

	assert.True(t, core.IsNotFoundError(s.Archive(ctx, core.NewExperimentID())))
}

func TestPhaseRecordOverlaysSavedStates(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	exp := newExperiment(t, s, time.Now().UTC())

	rec := phase.NewStatusRecord(exp.ID)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, rec.Skip(phase.NoveltyGeneration, "no literature source", now))
	require.NoError(t, rec.Start(phase.Preparation, now))
	require.NoError(t, rec.GateFail(phase.Preparation, "soft", now.Add(time.Second)))
	for _, n := range []phase.Name{phase.NoveltyGeneration, phase.Preparation} {
		st, err := rec.Get(n)
		require.NoError(t, err)
		require.NoError(t, s.SavePhaseState(ctx, *st))
	}
	// saving twice updates in place
	require.NoError(t, rec.Start(phase.Preparation, now.Add(2*time.Second)))
	st, _ := rec.Get(phase.Preparation)
	require.NoError(t, s.SavePhaseState(ctx, *st))

	got, err := s.GetPhaseRecord(ctx, exp.ID)
	require.NoError(t, err)
	require.Len(t, got.States, len(phase.Ordered()))

	novelty, _ := got.Get(phase.NoveltyGeneration)
	assert.Equal(t, phase.StatusSkipped, novelty.Status)
	assert.Equal(t, "no literature source", novelty.Detail)

	prep, _ := got.Get(phase.Preparation)
	assert.Equal(t, phase.StatusRunning, prep.Status)
	assert.Equal(t, 1, prep.RetryCount)
	require.NotNil(t, prep.EnteredAt)
	assert.True(t, now.Add(2*time.Second).Equal(*prep.EnteredAt))
	assert.Nil(t, prep.ExitedAt)

	gen, _ := got.Get(phase.Generation)
	assert.Equal(t, phase.StatusNotStarted, gen.Status)

	_, err = s.GetPhaseRecord(ctx, core.NewExperimentID())
	assert.True(t, core.IsNotFoundError(err))
}

func TestValidationsAreAppendOnlyAndOrdered(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	exp := newExperiment(t, s, time.Now().UTC())

	var ids []core.ResultID
	for attempt := 1; attempt <= 3; attempt++ {
		snr := -3.5
		res := &validation.ValidationResult{
			ID:           core.NewResultID(),
			ExperimentID: exp.ID,
			Domain:       experiment.DomainChemicalComposition,
			Attempt:      attempt,
			Stage:        string(phase.PreValidationGate),
			Passed:       attempt == 3,
			Violations: []validation.Violation{
				validation.SoftViolation("concentration", validation.KindOutOfRange, "150 above maximum", "[10, 98]", 150, 98),
			},
			Scores:    validation.Scores{validation.CriterionFeasibility: 0.5},
			Composite: 0.6,
			SNRdB:     &snr,
			Timestamp: time.Now().UTC(),
		}
		ids = append(ids, res.ID)
		require.NoError(t, s.AppendValidation(ctx, res))
	}

	dup := &validation.ValidationResult{ID: ids[0], ExperimentID: exp.ID, Stage: "pre_validation_gate", Timestamp: time.Now()}
	err := s.AppendValidation(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeDatabaseError))

	got, err := s.ListValidations(ctx, exp.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, res := range got {
		assert.Equal(t, ids[i], res.ID)
		assert.Equal(t, i+1, res.Attempt)
	}
	assert.Equal(t, map[string]float64{"concentration": 98}, got[0].Corrections())
	assert.Equal(t, -3.5, *got[0].SNRdB)
	assert.True(t, got[2].Passed)
}

func TestArtifactsUpsertKeepsOrder(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	exp := newExperiment(t, s, time.Now().UTC())

	first := &artifacts.Artifact{
		ID:           core.NewArtifactID(),
		ExperimentID: exp.ID,
		Kind:         artifacts.KindMarkdown,
		Content:      "concentration = 75",
		Claims:       map[string]float64{"concentration": 75},
		Audit:        artifacts.GenerationAudit{GeneratorType: "llm", Attempt: 1},
		CreatedAt:    time.Now().UTC(),
	}
	report := &artifacts.Artifact{
		ID:           core.NewArtifactID(),
		ExperimentID: exp.ID,
		Kind:         artifacts.KindReport,
		Content:      "# Deliverable",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.SaveArtifact(ctx, first))
	require.NoError(t, s.SaveArtifact(ctx, report))

	first.Content = "concentration = 98"
	first.Claims["concentration"] = 98
	require.NoError(t, s.SaveArtifact(ctx, first))

	got, err := s.ListArtifacts(ctx, exp.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, "concentration = 98", got[0].Content)
	assert.Equal(t, 98.0, got[0].Claims["concentration"])
	assert.Equal(t, "llm", got[0].Audit.GeneratorType)
	assert.Equal(t, artifacts.KindReport, got[1].Kind)
	assert.Empty(t, got[1].Claims)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := openStore(t)
	runner := migration.NewRunner()
	require.NoError(t, runner.Run(context.Background(), s.DB()))

	var n int
	require.NoError(t, s.DB().Get(&n, "SELECT COUNT(*) FROM schema_migrations"))
	assert.Equal(t, 4, n)
	assert.Equal(t, "004_artifacts", runner.Version())
}
