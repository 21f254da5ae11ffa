package excel

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"hypogate/internal/errors"
)

// CatalogEntry maps a dataset source name onto a file. Authentic is the
// catalog's own provenance verdict; it is what FetchSeries reports,
// whatever the experiment record claims.
type CatalogEntry struct {
	Source     string            `yaml:"source"`
	Path       string            `yaml:"path"`
	Sheet      string            `yaml:"sheet,omitempty"`
	Authentic  bool              `yaml:"authentic"`
	Provenance string            `yaml:"provenance,omitempty"`
	Units      map[string]string `yaml:"units,omitempty"`
}

// Catalog is the dataset catalog file.
type Catalog struct {
	Datasets []CatalogEntry `yaml:"datasets"`
}

// DEFAULT_SHEET is read when an xlsx entry names no sheet.
const DEFAULT_SHEET = "Sheet1"

// LoadCatalog reads a YAML catalog. Relative paths resolve against the
// catalog's directory.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read dataset catalog %s", path)
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "failed to parse dataset catalog %s", path))
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool, len(cat.Datasets))
	for i := range cat.Datasets {
		e := &cat.Datasets[i]
		e.Source = strings.TrimSpace(e.Source)
		if e.Source == "" || e.Path == "" {
			return nil, errors.ConfigInvalidf("catalog entry %d needs source and path", i)
		}
		if seen[e.Source] {
			return nil, errors.ConfigInvalidf("catalog source %q listed twice", e.Source)
		}
		seen[e.Source] = true
		if !filepath.IsAbs(e.Path) {
			e.Path = filepath.Join(base, e.Path)
		}
	}
	return &cat, nil
}

// Lookup returns the entry for source.
func (c *Catalog) Lookup(source string) (CatalogEntry, bool) {
	for _, e := range c.Datasets {
		if e.Source == source {
			return e, true
		}
	}
	return CatalogEntry{}, false
}
