package empirical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypogate/domain/core"
)

// alternating +-1 has population variance exactly 1.
func unitNoise(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}

func TestAnalyzeTrapBelowFloor(t *testing.T) {
	a := NewAnalyzer()
	effect := EffectForSNR(-15.5, 1)

	res, err := a.Analyze(effect, unitNoise(100), -10, 10)
	require.NoError(t, err)
	assert.InDelta(t, -15.5, res.SNRdB, 1e-9)
	assert.True(t, res.Trap)
	assert.Less(t, res.Detectability, 0.5)
}

func TestAnalyzeAboveFloor(t *testing.T) {
	res, err := NewAnalyzer().Analyze(2, unitNoise(10), -10, 10)
	require.NoError(t, err)
	assert.InDelta(t, 10*math.Log10(4), res.SNRdB, 1e-9)
	assert.False(t, res.Trap)
	assert.Greater(t, res.Detectability, 0.9)
	assert.Equal(t, 1.0, res.NoisePower)
	assert.Equal(t, 0.0, res.Mean)
}

func TestAnalyzeExactlyAtFloorIsNotTrap(t *testing.T) {
	res, err := NewAnalyzer().Analyze(EffectForSNR(-10, 1), unitNoise(10), -10, 10)
	require.NoError(t, err)
	assert.InDelta(t, -10, res.SNRdB, 1e-9)
	assert.InDelta(t, 0.5, res.Detectability, 1e-9)
}

func TestAnalyzeDropsNonFinite(t *testing.T) {
	series := append(unitNoise(4), math.NaN(), math.Inf(1))
	res, err := NewAnalyzer().Analyze(1, series, -10, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Samples)
	assert.Equal(t, 2, res.Dropped)
}

func TestAnalyzeErrors(t *testing.T) {
	a := NewAnalyzer()

	_, err := a.Analyze(1, []float64{3}, -10, 10)
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	_, err = a.Analyze(math.NaN(), unitNoise(4), -10, 10)
	assert.ErrorIs(t, err, core.ErrNonFinite)
}

func TestSNRdBClamps(t *testing.T) {
	assert.Equal(t, MAX_SNR_DB, SNRdB(1, 0))
	assert.Equal(t, MIN_SNR_DB, SNRdB(0, 1))
	assert.Equal(t, MIN_SNR_DB, SNRdB(0, 0))
	assert.InDelta(t, 0, SNRdB(2, 2), 1e-12)
}
