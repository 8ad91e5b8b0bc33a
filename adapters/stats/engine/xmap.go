package engine

import (
	"time"

	"goedm/adapters/stats/knn"
	"goedm/adapters/stats/projection"
	"goedm/adapters/stats/skill"
	"goedm/domain/core"
	"goedm/domain/edm"
	"goedm/internal/parallel"
)

// XMap cross maps every column of ds against every other. Cell (i, j) is
// the skill with which the E_j-dimensional reconstruction of column i
// predicts column j, where E_j = edims[j].
func (e *Engine) XMap(ds *edm.Dataset, edims []int, tau, tp int) (cm *edm.CrossMap, err error) {
	defer func(started time.Time) { e.observe(OpXMap, started, err) }(time.Now())

	if err := validateXMap(ds, edims, tau, tp); err != nil {
		return nil, err
	}

	groups := edm.GroupByEmbedding(edims)
	cols := ds.Cols()
	cm = edm.NewCrossMap(cols)

	// Coarse parallelism across library columns when there are enough of
	// them to keep every worker busy, kernel parallelism otherwise.
	outer, inner := parallel.Serial, e.pool
	if cols >= e.pool.Workers() {
		outer, inner = e.pool, parallel.Serial
	}

	errs := make([]error, cols)
	outer.For(cols, func(lo, hi int) {
		w := newXMapWorker(ds.Rows(), groups, tau, tp, inner)
		for i := lo; i < hi; i++ {
			errs[i] = w.crossMap(ds, i, cm.Row(i))
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	e.metrics.AddSeries(cols)
	e.logger.Debug("xmap %d series x %d rows, max E=%d", cols, ds.Rows(), groups.MaxE())
	return cm, nil
}

func validateXMap(ds *edm.Dataset, edims []int, tau, tp int) error {
	if ds == nil || ds.Cols() == 0 {
		return core.NewShapeError("dataset has no columns")
	}
	if len(edims) != ds.Cols() {
		return core.NewShapeError("Number of time series must match the number of embedding dimensions")
	}
	maxE := 0
	for _, E := range edims {
		if E <= 0 {
			return core.NewEmbeddingError("All embedding dimensions must be larger than zero")
		}
		maxE = max(maxE, E)
	}
	p := edm.Params{E: maxE, Tau: tau, Tp: tp}
	return p.ValidateLengths(ds.Rows(), ds.Rows(), maxE+1)
}

// xmapWorker owns one LUT template per embedding dimension in use plus the
// scratch arena and prediction buffer. Templates are rebuilt in place for
// every library column.
type xmapWorker struct {
	searcher *knn.Searcher
	pool     *parallel.Pool
	groups   edm.Targets
	luts     []*knn.LUT
	pred     []float32
	tau, tp  int
}

func newXMapWorker(rows int, groups edm.Targets, tau, tp int, pool *parallel.Pool) *xmapWorker {
	w := &xmapWorker{
		searcher: knn.NewSearcher(knn.NewWorkspace(rows, rows), pool),
		pool:     pool,
		groups:   groups,
		luts:     make([]*knn.LUT, groups.MaxE()),
		pred:     make([]float32, rows),
		tau:      tau,
		tp:       tp,
	}
	for E := 1; E <= groups.MaxE(); E++ {
		if len(groups.Columns(E)) == 0 {
			continue
		}
		p := edm.Params{E: E, Tau: tau, Tp: tp}
		w.luts[E-1] = knn.NewLUT(p.PredictionLength(rows), E+1)
	}
	return w
}

// crossMap fills out[j] for every column j using library column i
func (w *xmapWorker) crossMap(ds *edm.Dataset, i int, out []float32) error {
	library := ds.Column(i)

	for E, lut := range w.luts {
		if lut == nil {
			continue
		}
		p := edm.Params{E: E + 1, Tau: w.tau, Tp: w.tp}

		if err := w.searcher.Search(library, library, lut, p, lut.TopK); err != nil {
			return err
		}
		if err := knn.Normalize(lut, w.pool); err != nil {
			return err
		}

		pred := w.pred[:lut.Rows]
		for _, j := range w.groups.Columns(E + 1) {
			target := ds.Column(j)
			if err := projection.Lookup(pred, target, lut, p.Shift(), w.pool); err != nil {
				return err
			}
			out[j] = skill.Aligned(target, pred, p.Shift())
		}
	}
	return nil
}
