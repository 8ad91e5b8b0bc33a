package knn

import (
	"fmt"

	"github.com/chewxy/math32"

	"goedm/domain/core"
)

// Phase tags what the distance storage of a LUT currently holds
type Phase int

const (
	// PhaseRaw: Distances holds true Euclidean distances, ascending per row
	PhaseRaw Phase = iota
	// PhaseNormalized: the same storage holds weights summing to 1 per row
	PhaseNormalized
)

func (p Phase) String() string {
	switch p {
	case PhaseRaw:
		return "raw"
	case PhaseNormalized:
		return "normalized"
	default:
		return "unknown"
	}
}

// ExcludedDistance is what a degenerate (self) match holds after the square
// root pass. Such entries always sort last.
var ExcludedDistance = math32.Sqrt(math32.MaxFloat32)

// IsExcluded reports whether a raw distance marks a degenerate match
func IsExcluded(d float32) bool {
	return d >= ExcludedDistance
}

// LUT is a lookup table of the TopK nearest library points for each of Rows
// query points. Distances and Indices are row-major and co-indexed.
type LUT struct {
	Rows      int
	TopK      int
	Distances []float32
	Indices   []int
	phase     Phase
}

// NewLUT allocates a rows x topK table in the raw phase
func NewLUT(rows, topK int) *LUT {
	return &LUT{
		Rows:      rows,
		TopK:      topK,
		Distances: make([]float32, rows*topK),
		Indices:   make([]int, rows*topK),
	}
}

// Phase returns the current phase
func (l *LUT) Phase() Phase {
	return l.phase
}

// Row returns the distance (or weight) and index views of row i
func (l *LUT) Row(i int) ([]float32, []int) {
	lo, hi := i*l.TopK, (i+1)*l.TopK
	return l.Distances[lo:hi:hi], l.Indices[lo:hi:hi]
}

func (l *LUT) requirePhase(want Phase) error {
	if l.phase != want {
		return fmt.Errorf("%w: table is %s, expected %s", core.ErrPhase, l.phase, want)
	}
	return nil
}

// RequireNormalized fails unless the table holds weights
func (l *LUT) RequireNormalized() error {
	return l.requirePhase(PhaseNormalized)
}
