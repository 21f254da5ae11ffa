package validator

import (
	"hypogate/domain/experiment"
)

// newChemicalComposition validates solution composition experiments.
func newChemicalComposition(base DomainValidator) *DomainValidator {
	v := base
	v.domain = experiment.DomainChemicalComposition
	v.variable = "concentration"
	v.ranges = chemicalCompositionRanges
	v.precedents = []string{"sulfuric", "binary", "stratospheric", "henry", "raoult"}
	v.constraints = []Constraint{
		{
			Name:       "mass balance",
			Subject:    "diluent_fraction",
			Parameters: []string{"concentration", "diluent_fraction"},
			Describe:   "concentration + diluent_fraction <= 100 %",
			Check: func(p map[string]float64) (float64, float64) {
				return p["concentration"] + p["diluent_fraction"], MAX_CONCENTRATION_PERCENT
			},
		},
		{
			Name:       "partial pressure",
			Subject:    "vapor_pressure",
			Parameters: []string{"vapor_pressure", "pressure"},
			Describe:   "vapor_pressure <= pressure",
			Check: func(p map[string]float64) (float64, float64) {
				return p["vapor_pressure"], p["pressure"]
			},
		},
	}
	return &v
}
