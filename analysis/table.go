package analysis

import (
	"strconv"
	"strings"
)

// Table is a rectangular dataset of named columns. Every row has exactly
// len(Columns) cells; cells are kept as raw text and typed during profiling.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// NewTable builds a table, padding short rows and truncating long ones
func NewTable(name string, header []string, rows [][]string) *Table {
	t := &Table{Name: name, Columns: normalizeHeader(header)}
	t.Rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		row := make([]string, len(t.Columns))
		copy(row, r)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// RowCount returns the number of data rows (header excluded)
func (t *Table) RowCount() int { return len(t.Rows) }

// ColumnIndex returns the position of a column or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// column returns the cells of column i in row order
func (t *Table) column(i int) []string {
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

var nullTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "<NA>": {},
}

// IsNull reports whether a cell counts as a missing value
func IsNull(cell string) bool {
	_, ok := nullTokens[strings.TrimSpace(cell)]
	return ok
}

// normalizeHeader trims names, fills blanks and makes duplicates unique
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}
