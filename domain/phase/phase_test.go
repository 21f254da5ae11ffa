package phase

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypogate/domain/core"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusNotStarted, StatusRunning, true},
		{StatusNotStarted, StatusSkipped, true},
		{StatusNotStarted, StatusGatePassed, false},
		{StatusRunning, StatusGatePassed, true},
		{StatusRunning, StatusGateFailed, true},
		{StatusRunning, StatusFailed, true},
		{StatusGateFailed, StatusRunning, true},
		{StatusGateFailed, StatusFailed, true},
		{StatusGateFailed, StatusGatePassed, false},
		{StatusGatePassed, StatusRunning, false},
		{StatusFailed, StatusRunning, false},
		{StatusSkipped, StatusRunning, false},
	}
	for _, tt := range tests {
		err := Transition(tt.from, tt.to)
		if tt.ok && err != nil {
			t.Errorf("Transition(%s, %s) unexpected error: %v", tt.from, tt.to, err)
		}
		if !tt.ok && !errors.Is(err, core.ErrInvalidTransition) {
			t.Errorf("Transition(%s, %s) = %v, want ErrInvalidTransition", tt.from, tt.to, err)
		}
	}
}

func TestStartRequiresSettledPredecessor(t *testing.T) {
	r := NewStatusRecord("exp-1")

	err := r.Start(Preparation, t0)
	require.Error(t, err)

	require.NoError(t, r.Skip(NoveltyGeneration, "no literature source", t0))
	require.NoError(t, r.Start(Preparation, t0))
	require.NoError(t, r.Pass(Preparation, t0.Add(time.Second)))

	s, err := r.Get(Preparation)
	require.NoError(t, err)
	assert.Equal(t, StatusGatePassed, s.Status)
	assert.Equal(t, time.Second, s.Duration())
}

func TestGateFailRetryCounts(t *testing.T) {
	r := NewStatusRecord("exp-1")
	require.NoError(t, r.Start(NoveltyGeneration, t0))

	for i := 0; i < 2; i++ {
		require.NoError(t, r.GateFail(NoveltyGeneration, "soft", t0))
		require.NoError(t, r.Start(NoveltyGeneration, t0))
	}
	require.NoError(t, r.GateFail(NoveltyGeneration, "soft", t0))
	require.NoError(t, r.Fail(NoveltyGeneration, "retries exhausted", t0))

	s, _ := r.Get(NoveltyGeneration)
	assert.Equal(t, 3, s.RetryCount)
	assert.Equal(t, StatusFailed, s.Status)
	assert.Equal(t, 3, r.Summarize().Retries)
}

func TestCompleted(t *testing.T) {
	r := NewStatusRecord("exp-1")
	for _, n := range Ordered() {
		require.NoError(t, r.Start(n, t0))
		require.NoError(t, r.Pass(n, t0))
	}
	assert.True(t, r.Completed())
	assert.Equal(t, DeliverableCompilation, r.Current().Phase)
}

// Random operation sequences never leave a phase running while its
// predecessor is unsettled.
func TestRandomHistoriesKeepStartInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	phases := Ordered()
	ops := []func(r *StatusRecord, n Name) error{
		func(r *StatusRecord, n Name) error { return r.Start(n, t0) },
		func(r *StatusRecord, n Name) error { return r.Skip(n, "", t0) },
		func(r *StatusRecord, n Name) error { return r.Pass(n, t0) },
		func(r *StatusRecord, n Name) error { return r.GateFail(n, "", t0) },
		func(r *StatusRecord, n Name) error { return r.Fail(n, "", t0) },
	}

	for trial := 0; trial < 500; trial++ {
		r := NewStatusRecord("exp-prop")
		for step := 0; step < 60; step++ {
			n := phases[rng.Intn(len(phases))]
			_ = ops[rng.Intn(len(ops))](r, n)

			for i, s := range r.States {
				if s.Status != StatusRunning || i == 0 {
					continue
				}
				prev := r.States[i-1].Status
				if !prev.IsSettled() {
					t.Fatalf("trial %d step %d: %s running while %s is %s",
						trial, step, s.Phase, r.States[i-1].Phase, prev)
				}
			}
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := NewStatusRecord("exp-1")
	require.NoError(t, r.Start(NoveltyGeneration, t0))
	c := r.Clone()
	require.NoError(t, r.Pass(NoveltyGeneration, t0))
	assert.Equal(t, StatusRunning, c.States[0].Status)
}
