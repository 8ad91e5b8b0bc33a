package engine

import (
	"time"

	"goedm/adapters/stats/knn"
	"goedm/adapters/stats/projection"
	"goedm/adapters/stats/skill"
	"goedm/domain/core"
	"goedm/domain/edm"
)

// DefaultLibrarySteps is the number of library sizes tried when none are given
const DefaultLibrarySteps = 10

// ConvergencePoint is the cross-map skill at one library size
type ConvergencePoint struct {
	LibrarySize int     `json:"library_size"`
	Skill       float32 `json:"skill"`
}

// ConvergenceResult is a convergent cross mapping curve. Converged is set
// when the final skill exceeds 0.1 and grew by less than 0.1 over the
// previous size.
type ConvergenceResult struct {
	Points    []ConvergencePoint `json:"points"`
	Converged bool               `json:"converged"`
	Strength  float32            `json:"strength"`
}

// DefaultLibrarySizes spreads steps sizes evenly between the smallest usable
// library (E+1 points, at least a tenth of the data) and the full library.
func DefaultLibrarySizes(p edm.Params, n, steps int) []int {
	maxLib := p.LibraryPoints(n)
	minLib := max(p.E+1, maxLib/10)
	if maxLib < minLib || steps <= 0 {
		return nil
	}
	if steps == 1 || maxLib == minLib {
		return []int{maxLib}
	}

	sizes := make([]int, 0, steps)
	for s := 0; s < steps; s++ {
		size := minLib + s*(maxLib-minLib)/(steps-1)
		if len(sizes) > 0 && sizes[len(sizes)-1] == size {
			continue
		}
		sizes = append(sizes, size)
	}
	return sizes
}

// Convergence cross maps target from the reconstruction of library using
// only the first L embedded library points, for every L in libSizes. Skill
// that rises and then saturates with L is the signature of causal coupling
// from target to library.
func (e *Engine) Convergence(library, target edm.Sequence, p edm.Params, libSizes []int) (res ConvergenceResult, err error) {
	defer func(started time.Time) { e.observe(OpConvergence, started, err) }(time.Now())

	if len(library) != len(target) {
		return ConvergenceResult{}, core.NewShapeError("library and target must have same length")
	}
	topK := p.E + 1
	if err := p.ValidateLengths(len(library), len(target), topK); err != nil {
		return ConvergenceResult{}, err
	}

	n := len(library)
	if len(libSizes) == 0 {
		libSizes = DefaultLibrarySizes(p, n, DefaultLibrarySteps)
	}
	maxLib := p.LibraryPoints(n)
	for _, L := range libSizes {
		if L < topK || L > maxLib {
			return ConvergenceResult{}, core.NewInvalidArgument("library size %d outside [%d, %d]", L, topK, maxLib)
		}
	}

	searcher := knn.NewSearcher(knn.NewWorkspace(n, n), e.pool)
	lut := knn.NewLUT(p.PredictionLength(n), topK)
	pred := make([]float32, lut.Rows)
	shift := p.Shift()

	res.Points = make([]ConvergencePoint, 0, len(libSizes))
	for _, L := range libSizes {
		sub := library[:L+shift]
		if err := searcher.Search(sub, library, lut, p, topK); err != nil {
			return ConvergenceResult{}, err
		}
		if err := knn.Normalize(lut, e.pool); err != nil {
			return ConvergenceResult{}, err
		}
		if err := projection.Lookup(pred, target, lut, shift, e.pool); err != nil {
			return ConvergenceResult{}, err
		}
		res.Points = append(res.Points, ConvergencePoint{
			LibrarySize: L,
			Skill:       skill.Aligned(target, pred, shift),
		})
	}

	res.Converged, res.Strength = checkConvergence(res.Points)
	return res, nil
}

func checkConvergence(points []ConvergencePoint) (bool, float32) {
	if len(points) == 0 {
		return false, 0
	}
	final := points[len(points)-1].Skill
	if len(points) < 3 {
		return false, final
	}
	penultimate := points[len(points)-2].Skill
	return final > 0.1 && final-penultimate < 0.1, final
}
