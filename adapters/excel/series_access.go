package excel

import (
	"context"
	"fmt"
	"sync"

	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/internal"
	"hypogate/ports"
)

// SeriesAccess implements ports.DatasetAccess over the files of a catalog.
// Parsed files are cached; files are treated as read-only once loaded.
type SeriesAccess struct {
	catalog *Catalog
	logger  *internal.Logger

	mu    sync.Mutex
	cache map[string]*Sheet
}

var _ ports.DatasetAccess = (*SeriesAccess)(nil)

// NewSeriesAccess creates a new catalog-backed dataset access adapter
func NewSeriesAccess(catalog *Catalog, logger *internal.Logger) *SeriesAccess {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &SeriesAccess{
		catalog: catalog,
		logger:  logger.Named("datasets"),
		cache:   make(map[string]*Sheet),
	}
}

// FetchSeries reads variable from the file catalogued under ref.Source.
// Unknown sources, missing columns and unreadable files are permanent
// failures; the authenticity flag comes from the catalog.
func (a *SeriesAccess) FetchSeries(ctx context.Context, ref experiment.DatasetReference, variable string) (*ports.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, ok := a.catalog.Lookup(ref.Source)
	if !ok {
		return nil, ports.Permanent("dataset", fmt.Errorf("%w: source %q is not catalogued", core.ErrDatasetNotFound, ref.Source))
	}

	data, err := a.load(entry)
	if err != nil {
		return nil, ports.Permanent("dataset", err)
	}
	values, rejected, err := data.Numeric(variable)
	if err != nil {
		return nil, ports.Permanent("dataset", fmt.Errorf("%w: %s in %s: %v", core.ErrVariableNotFound, variable, ref.Source, err))
	}
	if rejected > 0 {
		a.logger.Warn("%s/%s: %d non-numeric cells ignored", ref.Source, variable, rejected)
	}

	return &ports.Series{
		Source:     entry.Source,
		Variable:   variable,
		Unit:       entry.Units[variable],
		Values:     values,
		Authentic:  entry.Authentic,
		Provenance: entry.Provenance,
	}, nil
}

func (a *SeriesAccess) load(entry CatalogEntry) (*Sheet, error) {
	key := entry.Path + "#" + entry.Sheet
	a.mu.Lock()
	defer a.mu.Unlock()
	if data, ok := a.cache[key]; ok {
		return data, nil
	}
	data, err := ReadSheet(entry.Path, entry.Sheet, a.logger)
	if err != nil {
		return nil, err
	}
	a.cache[key] = data
	a.logger.Info("loaded dataset %s (%d columns, %d rows)", entry.Source, len(data.Headers), data.Rows)
	return data, nil
}
