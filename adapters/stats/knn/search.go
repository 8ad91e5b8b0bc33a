package knn

import (
	"fmt"

	"github.com/chewxy/math32"

	"goedm/domain/core"
	"goedm/domain/edm"
	"goedm/internal/parallel"
)

// ============================================================================
// NEAREST-NEIGHBOR SEARCH
// ============================================================================
// For every embedded target point the searcher scans every embedded library
// point, keeps the TopK closest with a bounded insertion sort, and stores
// their true Euclidean distances in a LUT. A library point that occupies the
// same storage as the query point is never returned.
//
// All kernels are row-owned: row j of the scratch arena is written only by
// the goroutine that owns target point j, so the per-row order
// distances -> mask -> partial sort -> sqrt is the only ordering needed.
// ============================================================================

// Searcher builds lookup tables using a shared scratch arena. A Searcher is
// not safe for concurrent use; give each goroutine its own Workspace.
type Searcher struct {
	ws   *Workspace
	pool *parallel.Pool
}

// NewSearcher creates a searcher over the given arena and pool
func NewSearcher(ws *Workspace, pool *parallel.Pool) *Searcher {
	if ws == nil {
		ws = &Workspace{}
	}
	if pool == nil {
		pool = parallel.Serial
	}
	return &Searcher{ws: ws, pool: pool}
}

// Search fills lut with the topK nearest library points of every embedded
// target point. lut must be sized PredictionLength(len(target)) x topK.
func (s *Searcher) Search(library, target edm.Sequence, lut *LUT, p edm.Params, topK int) error {
	return s.run([]edm.Sequence{library}, []edm.Sequence{target}, lut, p, topK)
}

// SearchDataset is the multivariate search: the distance between two points
// sums the squared differences of every column's E lagged coordinates.
func (s *Searcher) SearchDataset(library, target *edm.Dataset, lut *LUT, p edm.Params, topK int) error {
	if library.Cols() != target.Cols() {
		return core.NewShapeError("library has %d columns, target has %d", library.Cols(), target.Cols())
	}
	return s.run(library.Columns(), target.Columns(), lut, p, topK)
}

func (s *Searcher) run(library, target []edm.Sequence, lut *LUT, p edm.Params, topK int) error {
	if err := p.Validate(); err != nil {
		return err
	}

	nLibrary := p.LibraryPoints(len(library[0]))
	nTarget := p.PredictionLength(len(target[0]))
	if nLibrary <= 0 {
		return core.ErrLibraryTooSmall
	}
	if nTarget <= 0 {
		return core.ErrTargetTooSmall
	}
	if topK <= 0 || topK > nLibrary {
		return fmt.Errorf("%w: top_k %d exceeds %d library points", core.ErrLibraryTooSmall, topK, nLibrary)
	}
	if lut.Rows != nTarget || lut.TopK != topK {
		return core.NewShapeError("lookup table is %dx%d, expected %dx%d", lut.Rows, lut.TopK, nTarget, topK)
	}

	s.ws.ensure(nLibrary * nTarget)
	alias, aliased := aliasOffset(library[0], target[0])

	s.pool.For(nTarget, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			dist := s.ws.distances[j*nLibrary : (j+1)*nLibrary]
			idx := s.ws.indices[j*nLibrary : (j+1)*nLibrary]

			squaredDistances(dist, idx, library, target, j, p)
			if aliased {
				maskDegenerate(dist, j-alias)
			}
			partialSort(dist, idx, topK)

			row, rowIdx := lut.Row(j)
			for k := 0; k < topK; k++ {
				row[k] = math32.Sqrt(dist[k])
				rowIdx[k] = int(idx[k])
			}
		}
	})

	lut.phase = PhaseRaw
	return nil
}

// squaredDistances computes the squared distance from target point j to
// every library point.
func squaredDistances(dist []float32, idx []int32, library, target []edm.Sequence, j int, p edm.Params) {
	for i := range dist {
		var d float32
		for c := range library {
			lib, tgt := library[c], target[c]
			for e := 0; e < p.E; e++ {
				diff := lib[i+e*p.Tau] - tgt[j+e*p.Tau]
				d += diff * diff
			}
		}
		dist[i] = d
		idx[i] = int32(i)
	}
}

// maskDegenerate pushes the library point sharing storage with the query
// past every real neighbor.
func maskDegenerate(dist []float32, i int) {
	if i >= 0 && i < len(dist) {
		dist[i] = math32.MaxFloat32
	}
}

// partialSort moves the topK smallest entries of dist (and their indices) to
// the front in ascending order. Cost is O(len(dist) * topK). Ties keep
// library order; at the k-th boundary the first-seen entry wins.
func partialSort(dist []float32, idx []int32, topK int) {
	for j := 1; j < len(dist); j++ {
		cur, curIdx := dist[j], idx[j]

		if j >= topK && cur >= dist[topK-1] {
			continue
		}

		k := min(j, topK-1)
		for ; k > 0; k-- {
			if dist[k-1] <= cur {
				break
			}
			dist[k] = dist[k-1]
			idx[k] = idx[k-1]
		}

		dist[k] = cur
		idx[k] = curIdx
	}
}

// aliasOffset finds d such that &library[i] == &target[i+d] when both slices
// view the same storage.
func aliasOffset(library, target edm.Sequence) (int, bool) {
	if len(library) == 0 || len(target) == 0 {
		return 0, false
	}
	for j := range target {
		if &target[j] == &library[0] {
			return j, true
		}
	}
	for i := range library {
		if &library[i] == &target[0] {
			return -i, true
		}
	}
	return 0, false
}
