package projection

import (
	"goedm/adapters/stats/knn"
	"goedm/adapters/stats/skill"
	"goedm/domain/core"
	"goedm/domain/edm"
	"goedm/internal/parallel"
)

// Simplex predicts with the weighted average of the E+1 nearest neighbors'
// Tp-ahead values.
type Simplex struct {
	searcher *knn.Searcher
	pool     *parallel.Pool
}

// NewSimplex creates a Simplex projector. ws may be shared across calls on
// the same goroutine.
func NewSimplex(ws *knn.Workspace, pool *parallel.Pool) *Simplex {
	if pool == nil {
		pool = parallel.Serial
	}
	return &Simplex{searcher: knn.NewSearcher(ws, pool), pool: pool}
}

// Predict returns one prediction per embedded target point
func (s *Simplex) Predict(library, target edm.Sequence, p edm.Params) (edm.Sequence, error) {
	topK := p.E + 1
	if err := p.ValidateLengths(len(library), len(target), topK); err != nil {
		return nil, err
	}

	lut := knn.NewLUT(p.PredictionLength(len(target)), topK)
	if err := s.searcher.Search(library, target, lut, p, topK); err != nil {
		return nil, err
	}
	if err := knn.Normalize(lut, s.pool); err != nil {
		return nil, err
	}

	out := make(edm.Sequence, lut.Rows)
	if err := Lookup(out, library, lut, p.Shift(), s.pool); err != nil {
		return nil, err
	}
	return out, nil
}

// PredictDataset is the multivariate form: neighbors are found in the joint
// embedding of every column, and column c of the result averages column c of
// the library.
func (s *Simplex) PredictDataset(library, target *edm.Dataset, p edm.Params) (*edm.Dataset, error) {
	if library.Cols() != target.Cols() {
		return nil, core.NewShapeError("library and target must have same dimensionality")
	}

	topK := p.E + 1
	if err := p.ValidateLengths(library.Rows(), target.Rows(), topK); err != nil {
		return nil, err
	}

	lut := knn.NewLUT(p.PredictionLength(target.Rows()), topK)
	if err := s.searcher.SearchDataset(library, target, lut, p, topK); err != nil {
		return nil, err
	}
	if err := knn.Normalize(lut, s.pool); err != nil {
		return nil, err
	}

	out := edm.NewDataset(lut.Rows, library.Cols())
	for c := 0; c < library.Cols(); c++ {
		if err := Lookup(out.Column(c), library.Column(c), lut, p.Shift(), s.pool); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Skill predicts target from library and returns the Pearson correlation
// between the prediction and the observed future.
func (s *Simplex) Skill(library, target edm.Sequence, p edm.Params) (float32, error) {
	pred, err := s.Predict(library, target, p)
	if err != nil {
		return 0, err
	}
	return skill.Aligned(target, pred, p.Shift()), nil
}
