package validator

import (
	"math"

	"hypogate/domain/experiment"
)

func newParticleDynamics(base DomainValidator) *DomainValidator {
	v := base
	v.domain = experiment.DomainParticleDynamics
	v.variable = "number_concentration"
	v.ranges = particleDynamicsRanges
	v.precedents = []string{"coagulation", "nucleation", "smoluchowski", "brownian", "aerosol"}
	v.constraints = []Constraint{
		{
			// monodisperse mass in ug/m^3 from N [cm^-3], d [um], rho [kg/m^3]
			Name:       "particle mass closure",
			Subject:    "mass_concentration",
			Parameters: []string{"mass_concentration", "number_concentration", "particle_diameter", "particle_density"},
			Describe:   "mass_concentration <= 2 * N * pi/6 * d^3 * rho * 1e-3",
			Check: func(p map[string]float64) (float64, float64) {
				d := p["particle_diameter"]
				mass := p["number_concentration"] * math.Pi / 6 * d * d * d * p["particle_density"] * 1e-3
				return p["mass_concentration"], PARTICLE_MASS_MARGIN * mass
			},
		},
	}
	return &v
}
