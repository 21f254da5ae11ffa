package validator

import (
	"hypogate/domain/experiment"
)

func newAtmosphericTransport(base DomainValidator) *DomainValidator {
	v := base
	v.domain = experiment.DomainAtmosphericTransport
	v.variable = "tracer_concentration"
	v.ranges = atmosphericTransportRanges
	v.precedents = []string{"lagrangian", "hysplit", "advection", "dispersion", "trajectory"}
	v.constraints = []Constraint{
		{
			Name:       "advective reach",
			Subject:    "transport_distance",
			Parameters: []string{"transport_distance", "wind_speed", "residence_time"},
			Describe:   "transport_distance <= wind_speed * residence_time * 86.4 km",
			Check: func(p map[string]float64) (float64, float64) {
				return p["transport_distance"], p["wind_speed"] * p["residence_time"] * SECONDS_PER_DAY_KM
			},
		},
	}
	return &v
}
