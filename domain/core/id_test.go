package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseExperimentID tests experiment ID parsing
func TestParseExperimentID(t *testing.T) {
	tests := []struct {
		input   string
		want    ExperimentID
		wantErr bool
	}{
		{"exp-1", "exp-1", false},
		{"  exp-2  ", "exp-2", false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, tt := range tests {
		got, err := ParseExperimentID(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseExperimentID(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseExperimentID(%q) unexpected error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseExperimentID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestComputeParameterHash_OrderIndependent(t *testing.T) {
	a := map[string]float64{"concentration": 75, "temperature": 220}
	b := map[string]float64{"temperature": 220, "concentration": 75}

	if ComputeParameterHash(a) != ComputeParameterHash(b) {
		t.Error("parameter hash must not depend on map iteration order")
	}

	c := map[string]float64{"concentration": 75.0000001, "temperature": 220}
	if ComputeParameterHash(a) == ComputeParameterHash(c) {
		t.Error("parameter hash must change when a value changes")
	}
}

func TestHashShort(t *testing.T) {
	h := NewHash([]byte("hypogate"))
	if len(h.Short()) != 12 {
		t.Errorf("Short() length = %d, want 12", len(h.Short()))
	}
	if Hash("abc").Short() != "abc" {
		t.Error("Short() of a short hash should return it unchanged")
	}
}
