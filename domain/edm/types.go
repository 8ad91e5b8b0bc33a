package edm

import (
	"goedm/domain/core"
)

// ============================================================================
// SEQUENCES AND DATASETS
// ============================================================================

// Sequence is one observed scalar time series. Callers must not mutate a
// Sequence while an engine call that received it is running.
type Sequence []float32

// Len returns the number of samples
func (s Sequence) Len() int {
	return len(s)
}

// Dataset is a set of equal-length sequences addressed as (row = time index,
// column = series index). Storage is column-major so every column is a
// contiguous Sequence view that shares memory with the dataset.
type Dataset struct {
	rows int
	cols int
	data []float32
}

// NewDataset allocates a zeroed rows x cols dataset
func NewDataset(rows, cols int) *Dataset {
	return &Dataset{
		rows: rows,
		cols: cols,
		data: make([]float32, rows*cols),
	}
}

// DatasetFromColumns copies the given sequences into a new dataset. All
// columns must have the same length.
func DatasetFromColumns(columns ...Sequence) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, core.NewShapeError("dataset needs at least one column")
	}

	rows := len(columns[0])
	ds := NewDataset(rows, len(columns))
	for j, col := range columns {
		if len(col) != rows {
			return nil, core.NewShapeError("column %d has %d rows, expected %d", j, len(col), rows)
		}
		copy(ds.Column(j), col)
	}
	return ds, nil
}

// DatasetFromRows copies row-major records into a new dataset
func DatasetFromRows(records [][]float32) (*Dataset, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, core.NewShapeError("dataset needs at least one row and one column")
	}

	cols := len(records[0])
	ds := NewDataset(len(records), cols)
	for i, rec := range records {
		if len(rec) != cols {
			return nil, core.NewShapeError("row %d has %d columns, expected %d", i, len(rec), cols)
		}
		for j, v := range rec {
			ds.Set(i, j, v)
		}
	}
	return ds, nil
}

// Rows returns the number of time steps
func (d *Dataset) Rows() int { return d.rows }

// Cols returns the number of series
func (d *Dataset) Cols() int { return d.cols }

// Column returns a non-owning view of column j
func (d *Dataset) Column(j int) Sequence {
	return Sequence(d.data[j*d.rows : (j+1)*d.rows : (j+1)*d.rows])
}

// Columns returns views of every column
func (d *Dataset) Columns() []Sequence {
	out := make([]Sequence, d.cols)
	for j := range out {
		out[j] = d.Column(j)
	}
	return out
}

// At returns the value at (row, col)
func (d *Dataset) At(row, col int) float32 {
	return d.data[col*d.rows+row]
}

// Set stores v at (row, col)
func (d *Dataset) Set(row, col int, v float32) {
	d.data[col*d.rows+row] = v
}

// Records converts the dataset back to row-major form
func (d *Dataset) Records() [][]float32 {
	out := make([][]float32, d.rows)
	for i := range out {
		rec := make([]float32, d.cols)
		for j := range rec {
			rec[j] = d.At(i, j)
		}
		out[i] = rec
	}
	return out
}

// ============================================================================
// EMBEDDING PARAMETERS
// ============================================================================

// Params is the (E, tau, Tp) embedding tuple
type Params struct {
	E   int `json:"E" yaml:"E"`
	Tau int `json:"tau" yaml:"tau"`
	Tp  int `json:"Tp" yaml:"Tp"`
}

// Shift is the offset between the first sample of the first embedded point
// and the value that point predicts.
func (p Params) Shift() int {
	return (p.E-1)*p.Tau + p.Tp
}

// Span is the number of samples covered by one embedded point minus one
func (p Params) Span() int {
	return (p.E - 1) * p.Tau
}

// LibraryPoints returns the number of embedded library points whose
// Tp-ahead value is still inside a library of length n.
func (p Params) LibraryPoints(n int) int {
	return n - p.Shift()
}

// PredictionLength returns the number of embedded target points, which is
// also the length of every prediction.
func (p Params) PredictionLength(nTarget int) int {
	return nTarget - p.Span()
}

// Validate checks the scalar constraints on E, tau and Tp
func (p Params) Validate() error {
	if p.E <= 0 {
		return core.NewEmbeddingError("E must be greater than zero")
	}
	if p.Tau <= 0 {
		return core.NewEmbeddingError("tau must be greater than zero")
	}
	if p.Tp < 0 {
		return core.NewEmbeddingError("Tp must be greater or equal to zero")
	}
	return nil
}

// ValidateLengths checks that a library of nLibrary samples holds at least
// topK usable points and that a target of nTarget samples embeds at least
// one point.
func (p Params) ValidateLengths(nLibrary, nTarget, topK int) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if lib := p.LibraryPoints(nLibrary); lib <= 0 || topK > lib {
		return core.ErrLibraryTooSmall
	}
	if p.PredictionLength(nTarget) <= 0 {
		return core.ErrTargetTooSmall
	}
	return nil
}

// ============================================================================
// CROSS-MAPPING TYPES
// ============================================================================

// Targets groups dataset columns by embedding dimension: Targets[E-1] holds
// the columns whose declared dimension is E. Built once per cross-map call
// and read-only afterwards.
type Targets [][]int

// GroupByEmbedding builds the grouping for a vector of per-column
// dimensions. Dimensions must already be validated as positive.
func GroupByEmbedding(edims []int) Targets {
	maxE := 0
	for _, e := range edims {
		if e > maxE {
			maxE = e
		}
	}

	groups := make(Targets, maxE)
	for col, e := range edims {
		groups[e-1] = append(groups[e-1], col)
	}
	return groups
}

// MaxE returns the largest dimension present in the grouping
func (t Targets) MaxE() int {
	return len(t)
}

// Columns returns the columns that use dimension E
func (t Targets) Columns(E int) []int {
	if E < 1 || E > len(t) {
		return nil
	}
	return t[E-1]
}

// CrossMap is an n x n skill matrix. Cell (i, j) holds the skill with which
// the reconstruction of library column i predicts column j.
type CrossMap struct {
	n    int
	data []float32
}

// NewCrossMap allocates an n x n matrix
func NewCrossMap(n int) *CrossMap {
	return &CrossMap{n: n, data: make([]float32, n*n)}
}

// Size returns the number of series
func (c *CrossMap) Size() int { return c.n }

// At returns cell (i, j)
func (c *CrossMap) At(i, j int) float32 { return c.data[i*c.n+j] }

// Set stores cell (i, j)
func (c *CrossMap) Set(i, j int, v float32) { c.data[i*c.n+j] = v }

// Row returns the writable row of library column i
func (c *CrossMap) Row(i int) []float32 {
	return c.data[i*c.n : (i+1)*c.n : (i+1)*c.n]
}

// Matrix copies the cross map into a slice of rows
func (c *CrossMap) Matrix() [][]float32 {
	out := make([][]float32, c.n)
	for i := range out {
		out[i] = append([]float32(nil), c.Row(i)...)
	}
	return out
}
