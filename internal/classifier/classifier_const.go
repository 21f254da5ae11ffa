package classifier

// classifier_const.go
//
// Keyword tables for domain classification. Single words score 1.0, phrases
// score 2.0 unless given an explicit weight. A trailing '*' matches any word
// with that prefix.

import "hypogate/domain/experiment"

const (
	// DEFAULT_CONFIDENCE_FLOOR: Minimum keyword score a domain needs before it
	// is preferred over generic.
	DEFAULT_CONFIDENCE_FLOOR = 1.0

	// WORD_WEIGHT and PHRASE_WEIGHT: default weights for table entries.
	WORD_WEIGHT   = 1.0
	PHRASE_WEIGHT = 2.0
)

// profile describes how one domain is recognized. Higher specificity wins ties.
type profile struct {
	domain      experiment.DomainTag
	specificity int
	terms       map[string]float64
}

// weight 0 means "use the default for word/phrase".
var profiles = []profile{
	{
		domain:      experiment.DomainChemicalComposition,
		specificity: 2,
		terms: map[string]float64{
			"concentration":   0,
			"composition":     0,
			"solution":        0,
			"solute":          0,
			"sulfate":         0,
			"sulfuric":        0,
			"acid":            0,
			"molar*":          0,
			"stoichiometr*":   0,
			"chemical*":       0,
			"mixing ratio":    0,
			"weight percent":  0,
			"vapor pressure":  0,
			"binary solution": 3,
		},
	},
	{
		domain:      experiment.DomainClimateResponse,
		specificity: 2,
		terms: map[string]float64{
			"climate":                 0,
			"warming":                 0,
			"feedback*":               0,
			"ecs":                     0,
			"sensitivity":             0,
			"climate sensitivity":     3,
			"temperature response":    0,
			"equilibrium climate":     0,
			"global mean temperature": 3,
		},
	},
	{
		domain:      experiment.DomainParticleDynamics,
		specificity: 2,
		terms: map[string]float64{
			"particle*":            0,
			"aerosol*":             0,
			"coagulation":          0,
			"nucleation":           0,
			"diameter":             0,
			"settling":             0,
			"size distribution":    0,
			"number concentration": 0,
			"deposition velocity":  0,
		},
	},
	{
		domain:      experiment.DomainRadiativeForcing,
		specificity: 3,
		terms: map[string]float64{
			"radiative":         0,
			"forcing":           0,
			"co2":               0,
			"albedo":            0,
			"irradiance":        0,
			"greenhouse":        0,
			"carbon dioxide":    0,
			"radiative forcing": 3,
		},
	},
	{
		domain:      experiment.DomainAtmosphericTransport,
		specificity: 2,
		terms: map[string]float64{
			"transport*":     0,
			"advection":      0,
			"diffusion":      0,
			"wind":           0,
			"plume":          0,
			"dispersion":     0,
			"trajector*":     0,
			"residence time": 0,
			"boundary layer": 0,
			"mixing height":  0,
		},
	},
	{
		domain:      experiment.DomainSignalDetection,
		specificity: 2,
		terms: map[string]float64{
			"signal*":         0,
			"detect*":         0,
			"noise":           0,
			"spectral":        0,
			"frequency":       0,
			"sampling":        0,
			"fourier":         0,
			"periodogram":     0,
			"snr":             0,
			"signal to noise": 3,
			"sampling rate":   0,
		},
	},
}
