package validator

import (
	"math"

	"hypogate/domain/experiment"
)

func co2Forcing(ppm float64) float64 {
	return CO2_FORCING_COEFFICIENT * math.Log(ppm/CO2_PREINDUSTRIAL_PPM)
}

// newRadiativeForcing validates CO2 forcing experiments using the simplified
// logarithmic expression.
func newRadiativeForcing(base DomainValidator) *DomainValidator {
	v := base
	v.domain = experiment.DomainRadiativeForcing
	v.variable = "radiative_flux"
	v.ranges = radiativeForcingRanges
	v.precedents = []string{"myhre", "logarithmic", "greenhouse", "irradiance", "doubling"}
	v.effect = func(p map[string]float64) (float64, bool) {
		c, ok := p["co2_concentration"]
		if !ok || c <= 0 {
			return 0, false
		}
		return co2Forcing(c), true
	}
	v.snrFloorDB = floorDB(RADIATIVE_FORCING_SNR_FLOOR_DB)
	v.constraints = []Constraint{
		{
			Name:       "logarithmic forcing",
			Subject:    "co2_forcing",
			Parameters: []string{"co2_forcing", "co2_concentration"},
			Describe:   "co2_forcing <= 5.35 ln(C/280) + 0.5 W/m^2",
			Check: func(p map[string]float64) (float64, float64) {
				return p["co2_forcing"], co2Forcing(p["co2_concentration"]) + RADIATIVE_FORCING_MARGIN
			},
		},
	}
	return &v
}
