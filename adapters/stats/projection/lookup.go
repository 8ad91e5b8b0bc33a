// Package projection turns nearest-neighbor tables into predictions: Simplex
// takes a weighted average of each neighbor's future, S-Map fits a locally
// weighted linear map.
package projection

import (
	"goedm/adapters/stats/knn"
	"goedm/domain/core"
	"goedm/domain/edm"
	"goedm/internal/parallel"
)

// Lookup writes out[j] = sum_k w[j][k] * source[idx[j][k] + shift] for every
// row of a normalized LUT. source must be at least as long as the library the
// LUT was built from.
func Lookup(out []float32, source edm.Sequence, lut *knn.LUT, shift int, pool *parallel.Pool) error {
	if err := lut.RequireNormalized(); err != nil {
		return err
	}
	if len(out) != lut.Rows {
		return core.NewShapeError("prediction has %d rows, table has %d", len(out), lut.Rows)
	}
	if pool == nil {
		pool = parallel.Serial
	}

	pool.For(lut.Rows, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			w, idx := lut.Row(j)
			var acc float32
			for k := range w {
				acc += w[k] * source[idx[k]+shift]
			}
			out[j] = acc
		}
	})
	return nil
}
