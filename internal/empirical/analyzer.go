// Package empirical computes how detectable a hypothesized effect is against
// the natural variability of a real dataset.
package empirical

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"hypogate/domain/core"
)

const (
	// MAX_SNR_DB and MIN_SNR_DB bound the reported SNR when either power is zero.
	MAX_SNR_DB = 300.0
	MIN_SNR_DB = -300.0

	// MIN_SAMPLES is the smallest series that yields a usable noise estimate.
	MIN_SAMPLES = 2
)

// Analysis is the outcome of one plausibility analysis.
type Analysis struct {
	EffectSize    float64 `json:"effect_size"`
	SignalPower   float64 `json:"signal_power"`
	NoisePower    float64 `json:"noise_power"`
	SNRdB         float64 `json:"snr_db"`
	FloorDB       float64 `json:"floor_db"`
	Detectability float64 `json:"detectability"`
	Trap          bool    `json:"trap"`
	Samples       int     `json:"samples"`
	Dropped       int     `json:"dropped"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
}

// Analyzer computes signal-to-noise ratios. It is stateless.
type Analyzer struct {
	normal distuv.Normal
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{normal: distuv.Normal{Mu: 0, Sigma: 1}}
}

// Analyze compares the effect size against the population variance of series.
// Non-finite samples are dropped. An SNR strictly below floorDB is a trap.
func (a *Analyzer) Analyze(effect float64, series []float64, floorDB, spreadDB float64) (*Analysis, error) {
	if math.IsNaN(effect) || math.IsInf(effect, 0) {
		return nil, fmt.Errorf("effect size: %w", core.ErrNonFinite)
	}
	if spreadDB <= 0 {
		return nil, fmt.Errorf("detectability spread must be positive, got %v", spreadDB)
	}

	data := make(stats.Float64Data, 0, len(series))
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		data = append(data, v)
	}
	if len(data) < MIN_SAMPLES {
		return nil, fmt.Errorf("%w: %d finite samples", core.ErrInsufficientData, len(data))
	}

	noise, err := stats.PopulationVariance(data)
	if err != nil {
		return nil, err
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return nil, err
	}
	stdDev, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return nil, err
	}

	signal := effect * effect
	snr := SNRdB(signal, noise)
	return &Analysis{
		EffectSize:    effect,
		SignalPower:   signal,
		NoisePower:    noise,
		SNRdB:         snr,
		FloorDB:       floorDB,
		Detectability: a.normal.CDF((snr - floorDB) / spreadDB),
		Trap:          snr < floorDB,
		Samples:       len(data),
		Dropped:       len(series) - len(data),
		Mean:          mean,
		StdDev:        stdDev,
	}, nil
}

// SNRdB returns 10*log10(signal/noise), clamped to [MIN_SNR_DB, MAX_SNR_DB].
func SNRdB(signal, noise float64) float64 {
	switch {
	case signal <= 0 && noise <= 0:
		return MIN_SNR_DB
	case signal <= 0:
		return MIN_SNR_DB
	case noise <= 0:
		return MAX_SNR_DB
	}
	snr := 10 * math.Log10(signal/noise)
	return math.Max(MIN_SNR_DB, math.Min(MAX_SNR_DB, snr))
}

// EffectForSNR returns the effect magnitude that yields snrDB against noise power.
func EffectForSNR(snrDB, noise float64) float64 {
	return math.Sqrt(noise * math.Pow(10, snrDB/10))
}
