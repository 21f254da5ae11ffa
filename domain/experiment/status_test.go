package experiment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypogate/domain/core"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name     string
		from, to Status
		wantErr  error
	}{
		{"pending to validated", StatusPending, StatusValidated, nil},
		{"pending to rejected", StatusPending, StatusRejected, nil},
		{"interrupted pending fails", StatusPending, StatusFailed, nil},
		{"rejected retry passes", StatusRejected, StatusValidated, nil},
		{"validated to generating", StatusValidated, StatusGenerating, nil},
		{"generating to completed", StatusGenerating, StatusCompleted, nil},
		{"pending cannot generate", StatusPending, StatusGenerating, core.ErrInvalidTransition},
		{"rejected cannot generate", StatusRejected, StatusGenerating, core.ErrInvalidTransition},
		{"completed is terminal", StatusCompleted, StatusFailed, core.ErrTerminalState},
		{"cancel from generating", StatusGenerating, StatusCancelled, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestParseDomain(t *testing.T) {
	d, err := ParseDomain("  Climate_Response ")
	require.NoError(t, err)
	assert.Equal(t, DomainClimateResponse, d)

	_, err = ParseDomain("astrology")
	assert.ErrorIs(t, err, core.ErrUnknownDomain)
}

func TestStrictnessOnlyTightens(t *testing.T) {
	process := Strictness{RealDataMandatory: true}
	run := Strictness{SyntheticDataForbidden: true}
	got := process.Tighten(run)
	assert.True(t, got.RealDataMandatory)
	assert.True(t, got.SyntheticDataForbidden)
	assert.Equal(t, process, process.Tighten(Strictness{}))
}

func TestDatasetsReadOnlyAfterStart(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	exp := New("", "ozone recovery", map[string]float64{"x": 1}, []DatasetReference{{Source: "a", Authentic: true}}, now)
	require.NoError(t, exp.ReplaceDatasets([]DatasetReference{{Source: "b", Authentic: true}}))

	exp.CurrentPhase = "novelty_generation"
	assert.ErrorIs(t, exp.ReplaceDatasets(nil), core.ErrReadOnlyDataset)
	assert.Equal(t, "b", exp.Datasets[0].Source)
}

func TestFingerprintStable(t *testing.T) {
	now := time.Now()
	a := New("id", "h", map[string]float64{"x": 1, "y": 2}, []DatasetReference{{Source: "s", Authentic: true}}, now)
	b := a.Clone()
	b.UpdatedAt = now.Add(time.Hour)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	require.NoError(t, b.SetParameter("x", 1.5, now))
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
