package experiment

import (
	"fmt"
	"strings"

	"hypogate/domain/core"
)

// DomainTag identifies the scientific domain an experiment is validated under.
type DomainTag string

// Closed set of domain tags. DomainGeneric applies universal numeric checks only.
const (
	DomainChemicalComposition  DomainTag = "chemical_composition"
	DomainClimateResponse      DomainTag = "climate_response"
	DomainParticleDynamics     DomainTag = "particle_dynamics"
	DomainRadiativeForcing     DomainTag = "radiative_forcing"
	DomainAtmosphericTransport DomainTag = "atmospheric_transport"
	DomainSignalDetection      DomainTag = "signal_detection"
	DomainGeneric              DomainTag = "generic"
)

// AllDomains returns every domain tag in a stable order, generic last.
func AllDomains() []DomainTag {
	return []DomainTag{
		DomainAtmosphericTransport,
		DomainChemicalComposition,
		DomainClimateResponse,
		DomainParticleDynamics,
		DomainRadiativeForcing,
		DomainSignalDetection,
		DomainGeneric,
	}
}

// ParseDomain normalizes s and checks it against the closed set.
func ParseDomain(s string) (DomainTag, error) {
	normalized := DomainTag(strings.ToLower(strings.TrimSpace(s)))
	for _, d := range AllDomains() {
		if d == normalized {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownDomain, s)
}

func (d DomainTag) String() string { return string(d) }

// IsGeneric reports whether d is the fallback domain.
func (d DomainTag) IsGeneric() bool { return d == DomainGeneric }
