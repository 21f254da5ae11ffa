package validator

import (
	"hypogate/domain/experiment"
)

func newSignalDetection(base DomainValidator) *DomainValidator {
	v := base
	v.domain = experiment.DomainSignalDetection
	v.variable = "signal"
	v.ranges = signalDetectionRanges
	v.precedents = []string{"matched", "periodogram", "lomb", "fourier", "spectral"}
	v.effect = func(p map[string]float64) (float64, bool) {
		a, ok := p["signal_amplitude"]
		return a, ok
	}
	v.snrFloorDB = floorDB(SIGNAL_DETECTION_SNR_FLOOR_DB)
	v.constraints = []Constraint{
		{
			Name:       "nyquist",
			Subject:    "signal_frequency",
			Parameters: []string{"signal_frequency", "sampling_rate"},
			Describe:   "signal_frequency <= sampling_rate / 2",
			Check: func(p map[string]float64) (float64, float64) {
				return p["signal_frequency"], p["sampling_rate"] / 2
			},
		},
	}
	return &v
}
