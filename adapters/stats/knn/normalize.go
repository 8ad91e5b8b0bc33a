package knn

import (
	"fmt"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/viterin/vek/vek32"

	"goedm/domain/core"
	"goedm/internal/parallel"
)

// MinWeight is the floor applied to every retained neighbor weight
const MinWeight float32 = 1e-6

// Normalize converts a raw LUT into Simplex weights, row by row. The nearest
// neighbor is the reference scale: w = exp(-d / d_min). When the nearest
// neighbor is an exact match only zero-distance entries keep weight 1. Every
// weight is floored at MinWeight and each row is divided by its sum.
func Normalize(lut *LUT, pool *parallel.Pool) error {
	if err := lut.requirePhase(PhaseRaw); err != nil {
		return err
	}
	if pool == nil {
		pool = parallel.Serial
	}

	pool.For(lut.Rows, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			row, _ := lut.Row(i)
			simplexWeights(row)
		}
	})

	lut.phase = PhaseNormalized
	return nil
}

func simplexWeights(row []float32) {
	minDist := vek32.Min(row)

	for k, d := range row {
		var w float32
		switch {
		case minDist > 0:
			w = math32.Exp(-d / minDist)
		case d > 0:
			w = 0
		default:
			w = 1
		}
		row[k] = max(w, MinWeight)
	}

	vek32.DivNumber_Inplace(row, vek32.Sum(row))
}

// WeighSMap converts a raw LUT into S-Map localization weights:
// w = exp(-theta * d / mean_d), with mean_d taken over non-excluded
// neighbors. Excluded (self) entries weigh exactly 0; theta = 0 gives every
// other neighbor the same weight. A row whose only candidates are excluded
// has nothing to fit and fails the whole table with ErrLibraryTooSmall.
func WeighSMap(lut *LUT, theta float32, pool *parallel.Pool) error {
	if err := lut.requirePhase(PhaseRaw); err != nil {
		return err
	}
	if pool == nil {
		pool = parallel.Serial
	}

	// lowest row without neighbors, so the error does not depend on scheduling
	var empty atomic.Int64
	empty.Store(int64(lut.Rows))
	pool.For(lut.Rows, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			row, _ := lut.Row(i)
			if smapWeights(row, theta) {
				continue
			}
			for cur := empty.Load(); int64(i) < cur && !empty.CompareAndSwap(cur, int64(i)); cur = empty.Load() {
			}
		}
	})
	if i := empty.Load(); i < int64(lut.Rows) {
		return fmt.Errorf("%w: point %d has no neighbor other than itself", core.ErrLibraryTooSmall, i)
	}

	lut.phase = PhaseNormalized
	return nil
}

// smapWeights reports false, leaving the row zeroed, when every entry is
// excluded
func smapWeights(row []float32, theta float32) bool {
	var sum float32
	n := 0
	for _, d := range row {
		if !IsExcluded(d) {
			sum += d
			n++
		}
	}
	if n == 0 {
		vek32.Zeros_Into(row, len(row))
		return false
	}
	mean := sum / float32(n)

	var total float32
	for k, d := range row {
		if IsExcluded(d) {
			row[k] = 0
			continue
		}

		w := float32(1)
		if mean > 0 && theta > 0 {
			w = math32.Exp(-theta * d / mean)
		}
		w = max(w, MinWeight)
		row[k] = w
		total += w
	}

	vek32.DivNumber_Inplace(row, total)
	return true
}
