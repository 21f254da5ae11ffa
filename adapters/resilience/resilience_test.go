package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypogate/domain/artifacts"
	"hypogate/domain/experiment"
	"hypogate/ports"
)

type flakyDatasets struct {
	calls    int
	failures int
	err      func(error) error
}

func (f *flakyDatasets) FetchSeries(ctx context.Context, ref experiment.DatasetReference, variable string) (*ports.Series, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err(errors.New("upstream unavailable"))
	}
	return &ports.Series{Source: ref.Source, Variable: variable, Values: []float64{1, 2}, Authentic: true}, nil
}

func testConfig() Config {
	return Config{BreakerThreshold: 2, BreakerTimeout: time.Minute, RetryAttempts: 3, RetryDelay: time.Millisecond}
}

func TestDatasetsRetriesTransientFailures(t *testing.T) {
	next := &flakyDatasets{failures: 2, err: func(e error) error { return ports.Retryable("dataset", e) }}
	series, err := WrapDatasets(next, testConfig(), nil).FetchSeries(context.Background(), experiment.DatasetReference{Source: "noaa"}, "concentration")
	require.NoError(t, err)
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, []float64{1, 2}, series.Values)
}

func TestDatasetsDoesNotRetryPermanentFailures(t *testing.T) {
	next := &flakyDatasets{failures: 5, err: func(e error) error { return ports.Permanent("dataset", e) }}
	_, err := WrapDatasets(next, testConfig(), nil).FetchSeries(context.Background(), experiment.DatasetReference{Source: "noaa"}, "concentration")
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, ports.TagPermanent, ports.TagOf(err))
	assert.NotErrorIs(t, err, errStop)
}

type failingGenerator struct{ calls int }

func (g *failingGenerator) Generate(ctx context.Context, req ports.GenerationRequest) (*artifacts.Artifact, error) {
	g.calls++
	return nil, ports.Retryable("generator", errors.New("503"))
}

func TestGeneratorBreakerOpensAfterThreshold(t *testing.T) {
	next := &failingGenerator{}
	g := WrapGenerator(next, testConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.Generate(ctx, ports.GenerationRequest{})
		require.Error(t, err)
	}
	assert.Equal(t, 2, next.calls)

	// open breaker rejects without calling through; the rejection is transient
	_, err := g.Generate(ctx, ports.GenerationRequest{})
	require.Error(t, err)
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, ports.TagRetryable, ports.TagOf(err))
}

type stubLiterature struct{ calls int }

func (s *stubLiterature) Assess(ctx context.Context, exp *experiment.Experiment) (*ports.LiteratureAssessment, error) {
	s.calls++
	if s.calls == 1 {
		return nil, ports.Retryable("literature", errors.New("timeout"))
	}
	return &ports.LiteratureAssessment{Support: 0.8, Novelty: 0.4}, nil
}

func TestLiteratureRetries(t *testing.T) {
	next := &stubLiterature{}
	res, err := WrapLiterature(next, testConfig()).Assess(context.Background(), &experiment.Experiment{})
	require.NoError(t, err)
	assert.Equal(t, 0.8, res.Support)
	assert.Equal(t, 2, next.calls)
}

func TestDatasetsBreakerIgnoresPermanentFailures(t *testing.T) {
	next := &flakyDatasets{failures: 4, err: func(e error) error { return ports.Permanent("dataset", e) }}
	d := WrapDatasets(next, testConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := d.FetchSeries(ctx, experiment.DatasetReference{Source: "noaa"}, "concentration")
		require.Error(t, err)
		assert.Equal(t, ports.TagPermanent, ports.TagOf(err))
	}
	assert.Equal(t, "closed", d.breaker.State().String())

	series, err := d.FetchSeries(ctx, experiment.DatasetReference{Source: "noaa"}, "concentration")
	require.NoError(t, err)
	assert.Equal(t, 5, next.calls)
	assert.Equal(t, "noaa", series.Source)
}

func TestBreakerSuccessful(t *testing.T) {
	assert.True(t, breakerSuccessful(nil))
	assert.True(t, breakerSuccessful(context.Canceled))
	assert.True(t, breakerSuccessful(&stopRetry{err: ports.Permanent("dataset", errors.New("bad ref"))}))
	assert.False(t, breakerSuccessful(ports.Retryable("dataset", errors.New("503"))))
	assert.False(t, breakerSuccessful(errors.New("untagged")))
}
