package excel

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"hypogate/internal"
)

// ReadSheet loads path into a Sheet. Files ending in .csv are parsed as CSV;
// anything else is opened as a workbook and the named sheet is streamed.
func ReadSheet(path, sheet string, logger *internal.Logger) (*Sheet, error) {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("dataset file %s: %w", path, err)
	}

	start := time.Now()
	b := newSheetBuilder()
	var err error
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		err = streamCSV(path, b)
	} else {
		if sheet == "" {
			sheet = DEFAULT_SHEET
		}
		err = streamWorkbook(path, sheet, b)
	}
	if err != nil {
		return nil, err
	}
	if b.header == nil || b.sheet.Rows == 0 {
		return nil, fmt.Errorf("%s: a header row and at least one data row are required", path)
	}
	logger.Debug("%s read in %s (%d rows)", path, time.Since(start).Round(time.Microsecond), b.sheet.Rows)
	return b.sheet, nil
}

func streamWorkbook(path, sheet string, b *sheetBuilder) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("sheet %s of %s: %w", sheet, path, err)
	}
	defer rows.Close()
	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("sheet %s of %s: %w", sheet, path, err)
		}
		b.add(cells)
	}
	return rows.Error()
}

func streamCSV(path string, b *sheetBuilder) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("csv %s: %w", path, err)
		}
		b.add(record)
	}
}

// sheetBuilder turns a row stream into columns. The first non-empty row is
// the header; short rows are padded so every column has one cell per row.
type sheetBuilder struct {
	header []string
	sheet  *Sheet
}

func newSheetBuilder() *sheetBuilder {
	return &sheetBuilder{sheet: &Sheet{Columns: make(map[string][]string)}}
}

func (b *sheetBuilder) add(cells []string) {
	if b.header == nil {
		if blankRow(cells) {
			return
		}
		b.header = make([]string, len(cells))
		for i, c := range cells {
			name := strings.TrimSpace(c)
			b.header[i] = name
			if name == "" {
				continue
			}
			if _, dup := b.sheet.Columns[name]; !dup {
				b.sheet.Headers = append(b.sheet.Headers, name)
				b.sheet.Columns[name] = nil
			}
		}
		return
	}
	if blankRow(cells) {
		return
	}
	seen := make(map[string]bool, len(b.header))
	for i, name := range b.header {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		cell := ""
		if i < len(cells) {
			cell = strings.TrimSpace(cells[i])
		}
		b.sheet.Columns[name] = append(b.sheet.Columns[name], cell)
	}
	b.sheet.Rows++
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Numeric parses column as float64. Blank cells are skipped; the count of
// cells that were present but not numeric is returned as well.
func (s *Sheet) Numeric(column string) ([]float64, int, error) {
	cells, ok := s.Columns[column]
	if !ok {
		return nil, 0, fmt.Errorf("column %q not found", column)
	}
	values := make([]float64, 0, len(cells))
	rejected := 0
	for _, cell := range cells {
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			rejected++
			continue
		}
		values = append(values, v)
	}
	return values, rejected, nil
}
