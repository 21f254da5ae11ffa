package validator

import (
	"math"

	"hypogate/domain/experiment"
)

// newClimateResponse validates climate sensitivity experiments. The effect
// is the equilibrium warming S*F/F2x.
func newClimateResponse(base DomainValidator) *DomainValidator {
	v := base
	v.domain = experiment.DomainClimateResponse
	v.variable = "temperature_anomaly"
	v.ranges = climateResponseRanges
	v.precedents = []string{"equilibrium", "transient", "cmip", "feedback", "sensitivity"}
	v.effect = func(p map[string]float64) (float64, bool) {
		s, okS := p["climate_sensitivity"]
		f, okF := p["forcing"]
		return s * f / CO2_DOUBLING_FORCING, okS && okF
	}
	v.snrFloorDB = floorDB(CLIMATE_RESPONSE_SNR_FLOOR_DB)
	v.constraints = []Constraint{
		{
			Name:       "energy balance",
			Subject:    "temperature_change",
			Parameters: []string{"temperature_change", "climate_sensitivity", "forcing"},
			Describe:   "|temperature_change| <= climate_sensitivity * |forcing| / 3.71",
			Check: func(p map[string]float64) (float64, float64) {
				return math.Abs(p["temperature_change"]),
					p["climate_sensitivity"] * math.Abs(p["forcing"]) / CO2_DOUBLING_FORCING
			},
		},
	}
	return &v
}
