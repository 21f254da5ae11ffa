package validator

// validator_const.go
//
// Range tables and constants for the domain validators. Ranges are
// inclusive at both ends. Cross-parameter constraints only ever involve an
// auxiliary quantity, so a parameter set made solely of in-range ranged
// parameters cannot trip one.

// ============================================================================
// 1. UNIVERSAL - applied by every validator, including generic
// ============================================================================

const (
	// DEFAULT_MAGNITUDE_CEILING: absolute values above this are treated as a
	// unit mistake and clamped.
	DEFAULT_MAGNITUDE_CEILING = 1e12

	// CONSTRAINT_EPSILON: relative slack on constraint ceilings to absorb
	// floating point error in derived bounds.
	CONSTRAINT_EPSILON = 1e-9

	// EFFECT_SIZE_PARAM: optional parameter that overrides the derived
	// effect. Without it a domain uses its physics, then the distance of the
	// parameter named after the dataset variable from the series mean.
	EFFECT_SIZE_PARAM = "effect_size"
)

// ============================================================================
// 1b. PLAUSIBILITY-TRAP FLOORS - per-domain defaults (dB)
// ============================================================================

// Domains without a floor here use SNR_FLOOR_DB. A record's snr_floor_db
// overrides both.
const (
	// CLIMATE_RESPONSE_SNR_FLOOR_DB: forced responses must stand out of
	// interannual variability in a single realisation.
	CLIMATE_RESPONSE_SNR_FLOOR_DB = -6.0

	// RADIATIVE_FORCING_SNR_FLOOR_DB: flux records are short and drift-prone.
	RADIATIVE_FORCING_SNR_FLOOR_DB = -6.0

	// SIGNAL_DETECTION_SNR_FLOOR_DB: coherent integration recovers periodic
	// signals well below the per-sample noise.
	SIGNAL_DETECTION_SNR_FLOOR_DB = -20.0
)

func floorDB(v float64) *float64 { return &v }

// ============================================================================
// 2. PRECEDENT STUB - literature support without a literature source
// ============================================================================

const (
	PRECEDENT_BASE_SCORE    = 0.5
	PRECEDENT_KEYWORD_BONUS = 0.1

	// DEFAULT_NOVELTY: novelty when neither a literature source nor the record supplies one.
	DEFAULT_NOVELTY = 0.5
)

// ============================================================================
// 3. DOMAIN PHYSICS
// ============================================================================

const (
	// CO2_FORCING_COEFFICIENT: simplified expression dF = 5.35 ln(C/C0) W/m^2.
	CO2_FORCING_COEFFICIENT = 5.35
	CO2_PREINDUSTRIAL_PPM   = 280.0

	// RADIATIVE_FORCING_MARGIN: W/m^2 a claimed CO2 forcing may exceed the
	// simplified expression by.
	RADIATIVE_FORCING_MARGIN = 0.5

	// CO2_DOUBLING_FORCING: W/m^2 per CO2 doubling, used to scale sensitivity.
	CO2_DOUBLING_FORCING = 3.71

	// PARTICLE_MASS_MARGIN: factor allowed on the derived monodisperse mass.
	PARTICLE_MASS_MARGIN = 2.0

	// SECONDS_PER_DAY_KM: m/s * days -> km.
	SECONDS_PER_DAY_KM = 86.4

	// MAX_CONCENTRATION_PERCENT: a mixture cannot exceed 100%.
	MAX_CONCENTRATION_PERCENT = 100.0
)

var chemicalCompositionRanges = []Range{
	{Parameter: "concentration", Min: 10, Max: 98, Unit: "%"},
	{Parameter: "temperature", Min: 200, Max: 250, Unit: "K"},
	{Parameter: "pressure", Min: 50, Max: 1100, Unit: "hPa"},
}

var climateResponseRanges = []Range{
	{Parameter: "climate_sensitivity", Min: 1.5, Max: 6, Unit: "K"},
	{Parameter: "forcing", Min: -10, Max: 10, Unit: "W/m^2"},
	{Parameter: "response_time", Min: 1, Max: 1000, Unit: "yr"},
}

var particleDynamicsRanges = []Range{
	{Parameter: "particle_diameter", Min: 0.001, Max: 100, Unit: "um"},
	{Parameter: "particle_density", Min: 100, Max: 20000, Unit: "kg/m^3"},
	{Parameter: "number_concentration", Min: 0.1, Max: 1e6, Unit: "cm^-3"},
}

var radiativeForcingRanges = []Range{
	{Parameter: "co2_concentration", Min: 180, Max: 2000, Unit: "ppm"},
}

var atmosphericTransportRanges = []Range{
	{Parameter: "wind_speed", Min: 0, Max: 100, Unit: "m/s"},
	{Parameter: "residence_time", Min: 0.01, Max: 365, Unit: "days"},
	{Parameter: "mixing_height", Min: 10, Max: 5000, Unit: "m"},
}

var signalDetectionRanges = []Range{
	{Parameter: "sampling_rate", Min: 0.001, Max: 1e6, Unit: "Hz"},
	{Parameter: "record_length", Min: 1, Max: 1e9, Unit: "samples"},
}
