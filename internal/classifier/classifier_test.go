package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypogate/domain/experiment"
	"hypogate/internal/errors"
)

func TestClassify(t *testing.T) {
	c := New(0)
	tests := []struct {
		name string
		text string
		want experiment.DomainTag
	}{
		{"chemical", "Sulfuric acid concentration in a binary solution controls vapor pressure", experiment.DomainChemicalComposition},
		{"climate", "Equilibrium climate sensitivity governs the global mean temperature response to warming", experiment.DomainClimateResponse},
		{"particles", "Aerosol particle coagulation reshapes the size distribution", experiment.DomainParticleDynamics},
		{"radiative", "Radiative forcing from CO2 doubling and surface albedo change", experiment.DomainRadiativeForcing},
		{"transport", "Wind advection and plume dispersion within the boundary layer", experiment.DomainAtmosphericTransport},
		{"signal", "Detecting a periodic signal against noise with a periodogram", experiment.DomainSignalDetection},
		{"generic", "Cats prefer sunny windowsills in the afternoon", experiment.DomainGeneric},
		{"empty", "", experiment.DomainGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.text, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Domain)
		})
	}
}

func TestClassifyOverride(t *testing.T) {
	c := New(0)
	got, err := c.Classify("aerosol particles", "signal_detection")
	require.NoError(t, err)
	assert.Equal(t, experiment.DomainSignalDetection, got.Domain)
	assert.True(t, got.Overridden)

	_, err = c.Classify("aerosol particles", "numerology")
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestClassifyTieBreaksOnSpecificity(t *testing.T) {
	// One word each for radiative_forcing (specificity 3) and climate_response (2).
	got, err := New(0).Classify("forcing and warming", "")
	require.NoError(t, err)
	assert.Equal(t, experiment.DomainRadiativeForcing, got.Domain)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
}

func TestClassifyBelowFloorFallsBack(t *testing.T) {
	got, err := New(5).Classify("a little wind", "")
	require.NoError(t, err)
	assert.Equal(t, experiment.DomainGeneric, got.Domain)
	assert.Equal(t, 1.0, got.Scores[experiment.DomainAtmosphericTransport])
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := New(0)
	text := "signal detection of aerosol transport"
	first, _ := c.Classify(text, "")
	for i := 0; i < 20; i++ {
		again, _ := c.Classify(text, "")
		assert.Equal(t, first, again)
	}
}
