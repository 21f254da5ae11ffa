package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/ports"
)

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	csvData := "year,concentration,temperature\n2001,70.5,221\n2002,,219\n2003,n/a,220\n2004,72.5,223\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noaa.csv"), []byte(csvData), 0o644))

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "aerosol"))
	require.NoError(t, f.SetSheetRow("aerosol", "A1", &[]interface{}{"month", "radius"}))
	require.NoError(t, f.SetSheetRow("aerosol", "A2", &[]interface{}{1, 0.25}))
	require.NoError(t, f.SetSheetRow("aerosol", "A3", &[]interface{}{2, 0.5}))
	require.NoError(t, f.SaveAs(filepath.Join(dir, "lab.xlsx")))
	require.NoError(t, f.Close())

	catalog := `datasets:
  - source: noaa
    path: noaa.csv
    authentic: true
    provenance: NOAA GML monthly means
    units:
      concentration: "%"
  - source: lab
    path: lab.xlsx
    sheet: aerosol
    authentic: false
`
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))
	return path
}

func TestFetchSeriesFromCSV(t *testing.T) {
	cat, err := LoadCatalog(writeFixtures(t))
	require.NoError(t, err)
	access := NewSeriesAccess(cat, nil)

	series, err := access.FetchSeries(context.Background(), experiment.DatasetReference{Source: "noaa"}, "concentration")
	require.NoError(t, err)
	assert.Equal(t, []float64{70.5, 72.5}, series.Values)
	assert.True(t, series.Authentic)
	assert.Equal(t, "%", series.Unit)
	assert.Equal(t, "NOAA GML monthly means", series.Provenance)
}

func TestFetchSeriesFromXLSXUsesCatalogAuthenticity(t *testing.T) {
	cat, err := LoadCatalog(writeFixtures(t))
	require.NoError(t, err)
	access := NewSeriesAccess(cat, nil)

	// the record claims authentic data; the catalog says otherwise
	ref := experiment.DatasetReference{Source: "lab", Authentic: true}
	series, err := access.FetchSeries(context.Background(), ref, "radius")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.5}, series.Values)
	assert.False(t, series.Authentic)
}

func TestFetchSeriesFailuresArePermanent(t *testing.T) {
	cat, err := LoadCatalog(writeFixtures(t))
	require.NoError(t, err)
	access := NewSeriesAccess(cat, nil)
	ctx := context.Background()

	_, err = access.FetchSeries(ctx, experiment.DatasetReference{Source: "esa"}, "concentration")
	require.Error(t, err)
	assert.Equal(t, ports.TagPermanent, ports.TagOf(err))
	assert.ErrorIs(t, err, core.ErrDatasetNotFound)

	_, err = access.FetchSeries(ctx, experiment.DatasetReference{Source: "noaa"}, "salinity")
	assert.ErrorIs(t, err, core.ErrVariableNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = access.FetchSeries(cancelled, experiment.DatasetReference{Source: "noaa"}, "concentration")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadCatalogRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("datasets:\n  - {source: a, path: a.csv}\n  - {source: a, path: b.csv}\n"), 0o644))
	_, err := LoadCatalog(path)
	assert.Error(t, err)
}

func TestReadSheetSkipsBlankRowsAndPadsShortOnes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	data := "\nyear,aod,note\n2001,0.12\n,,\n2002,0.14,volcanic\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	sheet, err := ReadSheet(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"year", "aod", "note"}, sheet.Headers)
	assert.Equal(t, 2, sheet.Rows)
	assert.Equal(t, []string{"", "volcanic"}, sheet.Columns["note"])

	values, rejected, err := sheet.Numeric("aod")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.12, 0.14}, values)
	assert.Zero(t, rejected)

	_, _, err = sheet.Numeric("missing")
	assert.Error(t, err)
}
