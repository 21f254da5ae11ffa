package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	ExperimentID ID
	ResultID     ID
	ArtifactID   ID
	DatasetID    ID
)

// NewExperimentID returns a fresh time-ordered experiment identifier.
func NewExperimentID() ExperimentID { return ExperimentID(NewID()) }

// NewResultID returns a fresh validation result identifier.
func NewResultID() ResultID { return ResultID(NewID()) }

// NewArtifactID returns a fresh artifact identifier.
func NewArtifactID() ArtifactID { return ArtifactID(NewID()) }

func (id ExperimentID) String() string { return ID(id).String() }
func (id ResultID) String() string     { return ID(id).String() }
func (id ArtifactID) String() string   { return ID(id).String() }
func (id DatasetID) String() string    { return ID(id).String() }

// ParseExperimentID parses a string into ExperimentID
func ParseExperimentID(s string) (ExperimentID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("experiment ID cannot be empty")
	}
	return ExperimentID(strings.TrimSpace(s)), nil
}

// ParseDatasetID parses a string into DatasetID
func ParseDatasetID(s string) (DatasetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("dataset ID cannot be empty")
	}
	return DatasetID(strings.TrimSpace(s)), nil
}
