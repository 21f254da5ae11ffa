package orchestrator

import (
	"context"

	"github.com/stretchr/testify/mock"

	"hypogate/domain/artifacts"
	"hypogate/domain/experiment"
	"hypogate/domain/validation"
	"hypogate/ports"
)

// Mock implementations for testing
type MockDatasetAccess struct {
	mock.Mock
}

func (m *MockDatasetAccess) FetchSeries(ctx context.Context, ref experiment.DatasetReference, variable string) (*ports.Series, error) {
	args := m.Called(ctx, ref, variable)
	series, _ := args.Get(0).(*ports.Series)
	return series, args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

// Generate accepts either a fixed artifact or a func building a fresh one per call.
func (m *MockGenerator) Generate(ctx context.Context, req ports.GenerationRequest) (*artifacts.Artifact, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(ports.GenerationRequest) *artifacts.Artifact); ok {
		return fn(req), args.Error(1)
	}
	art, _ := args.Get(0).(*artifacts.Artifact)
	return art, args.Error(1)
}

type MockCorrector struct {
	mock.Mock
}

func (m *MockCorrector) Correct(ctx context.Context, exp *experiment.Experiment, result *validation.ValidationResult) (map[string]float64, error) {
	args := m.Called(ctx, exp, result)
	changed, _ := args.Get(0).(map[string]float64)
	return changed, args.Error(1)
}

type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) Publish(ctx context.Context, report *artifacts.Artifact) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

type MockLiterature struct {
	mock.Mock
}

func (m *MockLiterature) Assess(ctx context.Context, exp *experiment.Experiment) (*ports.LiteratureAssessment, error) {
	args := m.Called(ctx, exp)
	lit, _ := args.Get(0).(*ports.LiteratureAssessment)
	return lit, args.Error(1)
}
