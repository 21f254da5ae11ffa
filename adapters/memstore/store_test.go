package memstore

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
	"hypogate/ports"
)

var now = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

func TestExperimentCopiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := New()
	exp := experiment.New("", "aerosol loading", map[string]float64{"x": 1}, nil, now)
	require.NoError(t, s.SaveExperiment(ctx, exp))

	exp.Parameters["x"] = 2
	got, err := s.GetExperiment(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Parameters["x"])

	_, err = s.GetExperiment(ctx, "missing")
	assert.True(t, core.IsNotFoundError(err))
}

func TestListFiltersArchived(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := experiment.New("", "first", nil, nil, now)
	b := experiment.New("", "second", nil, nil, now.Add(time.Second))
	require.NoError(t, s.SaveExperiment(ctx, a))
	require.NoError(t, s.SaveExperiment(ctx, b))
	require.NoError(t, s.Archive(ctx, a.ID))

	active, err := s.ListExperiments(ctx, ports.ListFilter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	all, err := s.ListExperiments(ctx, ports.ListFilter{IncludeArchived: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, a.ID, all[0].ID)
}

func TestPhaseRecordOverlaysSavedStates(t *testing.T) {
	ctx := context.Background()
	s := New()
	exp := experiment.New("", "h", nil, nil, now)
	require.NoError(t, s.SaveExperiment(ctx, exp))

	rec := phase.NewStatusRecord(exp.ID)
	require.NoError(t, rec.Start(phase.NoveltyGeneration, now))
	st, _ := rec.Get(phase.NoveltyGeneration)
	require.NoError(t, s.SavePhaseState(ctx, *st))

	got, err := s.GetPhaseRecord(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, phase.StatusRunning, got.States[0].Status)
	assert.Equal(t, phase.StatusNotStarted, got.States[1].Status)
	assert.Len(t, got.States, len(phase.Ordered()))
}

func TestValidationsAreAppendOnlyInOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	id := core.NewExperimentID()
	for i := 1; i <= 3; i++ {
		require.NoError(t, s.AppendValidation(ctx, &validation.ValidationResult{ID: core.NewResultID(), ExperimentID: id, Attempt: i}))
	}
	got, err := s.ListValidations(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, r := range got {
		assert.Equal(t, i+1, r.Attempt)
	}
}

func TestSaveArtifactReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := New()
	art := &artifacts.Artifact{ID: core.NewArtifactID(), ExperimentID: core.NewExperimentID(), Kind: artifacts.KindMarkdown, Content: "v1"}
	require.NoError(t, s.SaveArtifact(ctx, art))
	art.Content = "v2"
	require.NoError(t, s.SaveArtifact(ctx, art))

	got, err := s.ListArtifacts(ctx, art.ExperimentID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v2", got[0].Content)
}
