package excel

import (
	"goedm/domain/core"
	"goedm/domain/edm"
)

// RawTable is a sheet as read from disk: a header row and string cells
type RawTable struct {
	Headers []string   // Column headers
	Rows    [][]string // Data rows, ragged rows padded with ""
}

// Table is a numeric dataset with its column names
type Table struct {
	Headers []string
	Data    *edm.Dataset
}

// Index returns the position of the named column, or -1
func (t *Table) Index(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns the named column as a sequence view
func (t *Table) Column(name string) (edm.Sequence, error) {
	i := t.Index(name)
	if i < 0 {
		return nil, core.NewInvalidArgument("column %q not found", name)
	}
	return t.Data.Column(i), nil
}
