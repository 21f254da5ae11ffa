package ports

import (
	"context"

	"hypogate/domain/experiment"
)

// Series is a real-valued variable read from a referenced dataset.
type Series struct {
	Source     string    `json:"source"`
	Variable   string    `json:"variable"`
	Unit       string    `json:"unit,omitempty"`
	Values     []float64 `json:"values"`
	Authentic  bool      `json:"authentic"`
	Provenance string    `json:"provenance,omitempty"`
}

// DatasetAccess returns the series for a variable of a referenced dataset.
// The returned Authentic flag reflects the dataset source, not the caller's claim.
type DatasetAccess interface {
	FetchSeries(ctx context.Context, ref experiment.DatasetReference, variable string) (*Series, error)
}
