package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hypogate/adapters/memstore"
	"hypogate/domain/artifacts"
	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/domain/phase"
	"hypogate/internal/config"
	"hypogate/internal/errors"
)

// interrupt stores exp as a crashed process would leave it: status set and
// the named phase running.
func interrupt(t *testing.T, h *harness, id core.ExperimentID, status experiment.Status, at phase.Name) {
	t.Helper()
	ctx := context.Background()
	exp, err := h.store.GetExperiment(ctx, id)
	require.NoError(t, err)
	exp.Status = status
	exp.CurrentPhase = string(at)
	require.NoError(t, h.store.SaveExperiment(ctx, exp))

	rec := phase.NewStatusRecord(id)
	for _, n := range phase.Ordered() {
		if n == at {
			require.NoError(t, rec.Start(n, exp.CreatedAt))
			break
		}
		require.NoError(t, rec.Start(n, exp.CreatedAt))
		require.NoError(t, rec.Pass(n, exp.CreatedAt))
	}
	for _, s := range rec.States {
		require.NoError(t, h.store.SavePhaseState(ctx, s))
	}
}

func TestRecoverFailsInterruptedAndReturnsUnstarted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	fresh := h.submit(t, record(validParams()))
	preparing := h.submit(t, record(validParams()))
	generating := h.submit(t, record(validParams()))
	interrupt(t, h, preparing, experiment.StatusPending, phase.Preparation)
	interrupt(t, h, generating, experiment.StatusGenerating, phase.Generation)

	runnable, err := h.orch.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.ExperimentID{fresh}, runnable)

	for _, tc := range []struct {
		id core.ExperimentID
		at phase.Name
	}{{preparing, phase.Preparation}, {generating, phase.Generation}} {
		exp, err := h.store.GetExperiment(ctx, tc.id)
		require.NoError(t, err)
		assert.Equal(t, experiment.StatusFailed, exp.Status)
		assert.True(t, exp.Archived)

		rec, err := h.store.GetPhaseRecord(ctx, tc.id)
		require.NoError(t, err)
		assert.Equal(t, phase.StatusFailed, phaseState(t, rec, tc.at).Status)

		arts, err := h.store.ListArtifacts(ctx, tc.id)
		require.NoError(t, err)
		require.Len(t, arts, 1)
		assert.Equal(t, artifacts.KindReport, arts[0].Kind)
		assert.Contains(t, arts[0].Content, errors.CodeInterrupted)
		assert.Contains(t, arts[0].Content, string(tc.at))
	}

	// a second restart finds nothing left to settle
	runnable, err = h.orch.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.ExperimentID{fresh}, runnable)
	arts, err := h.store.ListArtifacts(ctx, generating)
	require.NoError(t, err)
	assert.Len(t, arts, 1)

	h.serveSeries(true)
	h.generator.On("Generate", mock.Anything, mock.Anything).Return(consistentArtifact, nil).Once()
	out, err := h.orch.Run(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusCompleted, out.Status())
}

// gatedStore blocks the first GetExperiment until release is closed.
type gatedStore struct {
	*memstore.Store
	entered chan struct{}
	release chan struct{}
	gated   atomic.Bool
}

func (s *gatedStore) GetExperiment(ctx context.Context, id core.ExperimentID) (*experiment.Experiment, error) {
	if s.gated.CompareAndSwap(false, true) {
		close(s.entered)
		<-s.release
	}
	return s.Store.GetExperiment(ctx, id)
}

func TestCancelHoldsClaimUntilStored(t *testing.T) {
	store := &gatedStore{Store: memstore.New(), entered: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, func(_ *config.Engine, d *Deps) { d.Store = store })
	id := h.submit(t, record(validParams()))

	done := make(chan error, 1)
	go func() { done <- h.orch.Cancel(context.Background(), id) }()
	<-store.entered

	_, err := h.orch.Run(context.Background(), id)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidTransition))

	close(store.release)
	require.NoError(t, <-done)

	stored, err := store.Store.GetExperiment(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusCancelled, stored.Status)
	h.datasets.AssertNotCalled(t, "FetchSeries", mock.Anything, mock.Anything, mock.Anything)
	h.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

	_, err = h.orch.Run(context.Background(), id)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidTransition))
}
