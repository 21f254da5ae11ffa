package excel

// Sheet is a column-oriented copy of one worksheet or CSV file. Cells are
// kept as trimmed text; numeric parsing happens per requested variable.
type Sheet struct {
	Headers []string
	Columns map[string][]string
	Rows    int
}

// HasColumn reports whether header is present.
func (s *Sheet) HasColumn(header string) bool {
	_, ok := s.Columns[header]
	return ok
}
