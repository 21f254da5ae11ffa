package validator

import (
	"hypogate/domain/experiment"
)

// newGeneric applies only the universal numeric checks.
func newGeneric(base DomainValidator) *DomainValidator {
	v := base
	v.domain = experiment.DomainGeneric
	v.variable = "value"
	return &v
}
