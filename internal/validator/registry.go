package validator

import (
	"fmt"
	"strings"

	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/internal/empirical"
	"hypogate/internal/scoring"
)

// registry.go
// One validator per domain tag. The registry is populated once in
// NewRegistry and never mutated afterwards, so it is shared across
// concurrent experiments without locking.

// Registry maps domain tags to validators.
type Registry struct {
	validators map[experiment.DomainTag]Validator
	order      []experiment.DomainTag
}

// NewRegistry builds a validator for every domain tag.
func NewRegistry(analyzer *empirical.Analyzer, scorer *scoring.Scorer) *Registry {
	if analyzer == nil {
		analyzer = empirical.NewAnalyzer()
	}
	if scorer == nil {
		scorer = scoring.NewScorer()
	}
	base := DomainValidator{analyzer: analyzer, scorer: scorer}

	r := &Registry{validators: make(map[experiment.DomainTag]Validator)}
	for _, tag := range experiment.AllDomains() {
		v, err := GetValidatorFactory(string(tag), base)
		if err != nil {
			// AllDomains and the factory switch are kept in lockstep.
			panic(err)
		}
		r.validators[tag] = v
		r.order = append(r.order, tag)
	}
	return r
}

// GetValidatorFactory returns the validator for a domain name.
func GetValidatorFactory(name string, base DomainValidator) (*DomainValidator, error) {
	switch experiment.DomainTag(strings.ToLower(strings.TrimSpace(name))) {
	case experiment.DomainChemicalComposition:
		return newChemicalComposition(base), nil
	case experiment.DomainClimateResponse:
		return newClimateResponse(base), nil
	case experiment.DomainParticleDynamics:
		return newParticleDynamics(base), nil
	case experiment.DomainRadiativeForcing:
		return newRadiativeForcing(base), nil
	case experiment.DomainAtmosphericTransport:
		return newAtmosphericTransport(base), nil
	case experiment.DomainSignalDetection:
		return newSignalDetection(base), nil
	case experiment.DomainGeneric:
		return newGeneric(base), nil
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrValidatorNotFound, name)
	}
}

// Get returns the validator for tag.
func (r *Registry) Get(tag experiment.DomainTag) (Validator, error) {
	v, ok := r.validators[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrValidatorNotFound, tag)
	}
	return v, nil
}

// Domains lists registered tags in registration order.
func (r *Registry) Domains() []experiment.DomainTag {
	out := make([]experiment.DomainTag, len(r.order))
	copy(out, r.order)
	return out
}
