package projection

import (
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/mat"

	"goedm/adapters/stats/knn"
	"goedm/adapters/stats/skill"
	"goedm/domain/core"
	"goedm/domain/edm"
	"goedm/internal/parallel"
)

// rankTolerance is the relative singular value cutoff of the local fits
const rankTolerance = 1e-5

// SMap predicts with a locally weighted linear map fitted over every library
// point. theta sets how quickly the weights fall off with distance.
type SMap struct {
	searcher *knn.Searcher
	pool     *parallel.Pool
}

// NewSMap creates an S-Map projector
func NewSMap(ws *knn.Workspace, pool *parallel.Pool) *SMap {
	if pool == nil {
		pool = parallel.Serial
	}
	return &SMap{searcher: knn.NewSearcher(ws, pool), pool: pool}
}

// ValidateTheta rejects negative and NaN localization exponents
func ValidateTheta(theta float32) error {
	if theta < 0 || math32.IsNaN(theta) {
		return core.NewInvalidArgument("theta must be greater or equal to zero")
	}
	return nil
}

// Predict returns one prediction per embedded target point
func (s *SMap) Predict(library, target edm.Sequence, p edm.Params, theta float32) (edm.Sequence, error) {
	if err := ValidateTheta(theta); err != nil {
		return nil, err
	}

	topK := p.LibraryPoints(len(library))
	if err := p.ValidateLengths(len(library), len(target), topK); err != nil {
		return nil, err
	}

	lut := knn.NewLUT(p.PredictionLength(len(target)), topK)
	if err := s.searcher.Search(library, target, lut, p, topK); err != nil {
		return nil, err
	}
	if err := knn.WeighSMap(lut, theta, s.pool); err != nil {
		return nil, err
	}

	out := make(edm.Sequence, lut.Rows)
	s.pool.For(lut.Rows, func(lo, hi int) {
		fit := newLocalFit(topK, p.E)
		for j := lo; j < hi; j++ {
			out[j] = fit.predict(lut, j, library, target, p)
		}
	})
	return out, nil
}

// Skill mirrors Simplex.Skill
func (s *SMap) Skill(library, target edm.Sequence, p edm.Params, theta float32) (float32, error) {
	pred, err := s.Predict(library, target, p, theta)
	if err != nil {
		return 0, err
	}
	return skill.Aligned(target, pred, p.Shift()), nil
}

// localFit holds the per-goroutine buffers of one weighted least-squares
// solve. Row k of the design is w_k * [1, x_k0 ... x_k(E-1)].
type localFit struct {
	design *mat.Dense
	rhs    *mat.VecDense
	coef   mat.VecDense
	svd    mat.SVD
}

func newLocalFit(topK, E int) *localFit {
	return &localFit{
		design: mat.NewDense(topK, E+1, nil),
		rhs:    mat.NewVecDense(topK, nil),
	}
}

func (f *localFit) predict(lut *knn.LUT, j int, library, target edm.Sequence, p edm.Params) float32 {
	w, idx := lut.Row(j)
	shift := p.Shift()

	var average float64
	for k := range w {
		wk := float64(w[k])
		y := float64(library[idx[k]+shift])
		average += wk * y

		f.design.Set(k, 0, wk)
		for e := 0; e < p.E; e++ {
			f.design.Set(k, e+1, wk*float64(library[idx[k]+e*p.Tau]))
		}
		f.rhs.SetVec(k, wk*y)
	}

	if !f.svd.Factorize(f.design, mat.SVDThin) {
		return float32(average)
	}
	rank := f.svd.Rank(rankTolerance)
	if rank == 0 {
		return float32(average)
	}
	f.svd.SolveVecTo(&f.coef, f.rhs, rank)

	pred := f.coef.AtVec(0)
	for e := 0; e < p.E; e++ {
		pred += f.coef.AtVec(e+1) * float64(target[j+e*p.Tau])
	}
	return float32(pred)
}
