package knn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goedm/domain/core"
	"goedm/domain/edm"
	"goedm/internal/parallel"
)

// =============================================================================
// Helpers
// =============================================================================

func noisySeries(n int, seed int64) edm.Sequence {
	rng := rand.New(rand.NewSource(seed))
	out := make(edm.Sequence, n)
	for i := range out {
		out[i] = float32(math.Sin(float64(i)*0.3)) + 0.1*float32(rng.NormFloat64())
	}
	return out
}

func search(t *testing.T, lib, tgt edm.Sequence, p edm.Params, topK int, pool *parallel.Pool) *LUT {
	t.Helper()
	lut := NewLUT(p.PredictionLength(len(tgt)), topK)
	s := NewSearcher(NewWorkspace(len(lib), len(tgt)), pool)
	require.NoError(t, s.Search(lib, tgt, lut, p, topK))
	return lut
}

// =============================================================================
// Search
// =============================================================================

func TestSearch_WorkedExample(t *testing.T) {
	x := edm.Sequence{1, 2, 3, 4, 5}
	p := edm.Params{E: 1, Tau: 1, Tp: 1}

	lut := search(t, x, x, p, 2, nil)
	require.Equal(t, 5, lut.Rows)

	tests := []struct {
		row     int
		indices []int
		dists   []float32
	}{
		{0, []int{1, 2}, []float32{1, 2}},
		{2, []int{1, 3}, []float32{1, 1}},
		{4, []int{3, 2}, []float32{1, 2}},
	}
	for _, tt := range tests {
		d, idx := lut.Row(tt.row)
		assert.Equal(t, tt.indices, idx, "row %d", tt.row)
		assert.InDeltaSlice(t, tt.dists, d, 1e-6, "row %d", tt.row)
	}
	assert.Equal(t, PhaseRaw, lut.Phase())
}

func TestSearch_NeverReturnsSelf(t *testing.T) {
	x := noisySeries(200, 1)
	p := edm.Params{E: 3, Tau: 2, Tp: 1}
	topK := p.E + 1

	lut := search(t, x, x, p, topK, parallel.NewPool(4))
	for j := 0; j < lut.Rows; j++ {
		_, idx := lut.Row(j)
		assert.NotContains(t, idx, j, "row %d matched itself", j)
	}
}

func TestSearch_NeverReturnsSelfForShiftedViews(t *testing.T) {
	x := noisySeries(150, 2)
	p := edm.Params{E: 2, Tau: 1, Tp: 1}

	// target[j] is library[j+7]
	lib, tgt := x, x[7:]
	lut := search(t, lib, tgt, p, p.E+1, nil)
	for j := 0; j < lut.Rows; j++ {
		_, idx := lut.Row(j)
		assert.NotContains(t, idx, j+7, "row %d matched itself", j)
	}
}

func TestSearch_RowsAreSortedAndDistinct(t *testing.T) {
	x := noisySeries(300, 3)
	p := edm.Params{E: 4, Tau: 1, Tp: 2}
	topK := 10

	lut := search(t, x, x, p, topK, parallel.NewPool(3))
	nLib := p.LibraryPoints(len(x))
	for j := 0; j < lut.Rows; j++ {
		d, idx := lut.Row(j)
		seen := make(map[int]bool, topK)
		for k := range idx {
			assert.GreaterOrEqual(t, idx[k], 0)
			assert.Less(t, idx[k], nLib)
			assert.False(t, seen[idx[k]], "row %d repeats index %d", j, idx[k])
			seen[idx[k]] = true
			if k > 0 {
				assert.LessOrEqual(t, d[k-1], d[k], "row %d not ascending", j)
			}
		}
	}
}

func TestSearch_ParallelMatchesSerial(t *testing.T) {
	x := noisySeries(250, 4)
	y := noisySeries(250, 5)
	p := edm.Params{E: 3, Tau: 1, Tp: 1}

	serial := search(t, x, y, p, 4, parallel.Serial)
	par := search(t, x, y, p, 4, parallel.NewPool(8))

	assert.Equal(t, serial.Indices, par.Indices)
	assert.Equal(t, serial.Distances, par.Distances)
}

func TestSearch_DistinctStorageKeepsExactMatches(t *testing.T) {
	x := edm.Sequence{1, 2, 3, 4, 5}
	y := append(edm.Sequence(nil), x...)
	p := edm.Params{E: 1, Tau: 1, Tp: 1}

	lut := search(t, x, y, p, 1, nil)
	d, idx := lut.Row(2)
	assert.Equal(t, []int{2}, idx)
	assert.Equal(t, float32(0), d[0])
}

func TestSearch_Multivariate(t *testing.T) {
	ds, err := edm.DatasetFromColumns(
		edm.Sequence{0, 1, 2, 3, 4, 5},
		edm.Sequence{0, 0, 0, 0, 0, 3},
	)
	require.NoError(t, err)
	query, err := edm.DatasetFromColumns(edm.Sequence{2}, edm.Sequence{4})
	require.NoError(t, err)

	p := edm.Params{E: 1, Tau: 1, Tp: 1}
	lut := NewLUT(1, 2)
	s := NewSearcher(nil, nil)
	require.NoError(t, s.SearchDataset(ds, query, lut, p, 2))

	d, idx := lut.Row(0)
	// point 2 is (2,0): distance 4; point 1 and 3 are sqrt(1+16)
	assert.Equal(t, 2, idx[0])
	assert.InDelta(t, 4.0, d[0], 1e-6)
	assert.Equal(t, 1, idx[1])
	assert.InDelta(t, math.Sqrt(17), d[1], 1e-5)
}

func TestSearch_Validation(t *testing.T) {
	x := noisySeries(20, 6)
	s := NewSearcher(nil, nil)

	tests := []struct {
		name   string
		params edm.Params
		topK   int
		lut    *LUT
		target error
	}{
		{"zero E", edm.Params{E: 0, Tau: 1, Tp: 1}, 1, NewLUT(20, 1), core.ErrInvalidEmbedding},
		{"zero tau", edm.Params{E: 2, Tau: 0, Tp: 1}, 1, NewLUT(19, 1), core.ErrInvalidEmbedding},
		{"negative Tp", edm.Params{E: 2, Tau: 1, Tp: -1}, 1, NewLUT(19, 1), core.ErrInvalidEmbedding},
		{"top k too large", edm.Params{E: 2, Tau: 1, Tp: 1}, 19, NewLUT(19, 19), core.ErrLibraryTooSmall},
		{"library too short", edm.Params{E: 11, Tau: 2, Tp: 1}, 1, NewLUT(1, 1), core.ErrLibraryTooSmall},
		{"wrong table shape", edm.Params{E: 2, Tau: 1, Tp: 1}, 3, NewLUT(10, 3), core.ErrShapeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Search(x, x, tt.lut, tt.params, tt.topK)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, core.IsInvalidArgument(err))
		})
	}
}

func TestPartialSort_FirstSeenWinsAtBoundary(t *testing.T) {
	dist := []float32{3, 1, 2, 2, 2, 0.5}
	idx := []int32{0, 1, 2, 3, 4, 5}

	partialSort(dist, idx, 3)

	assert.Equal(t, []float32{0.5, 1, 2}, dist[:3])
	assert.Equal(t, []int32{5, 1, 2}, idx[:3])
}

// =============================================================================
// Weights
// =============================================================================

func TestNormalize_RowsSumToOne(t *testing.T) {
	x := noisySeries(300, 7)
	p := edm.Params{E: 3, Tau: 1, Tp: 1}

	lut := search(t, x, x, p, p.E+1, parallel.NewPool(4))
	require.NoError(t, Normalize(lut, parallel.NewPool(4)))
	require.Equal(t, PhaseNormalized, lut.Phase())

	for j := 0; j < lut.Rows; j++ {
		w, _ := lut.Row(j)
		var sum float64
		for _, v := range w {
			assert.GreaterOrEqual(t, v, float32(0))
			sum += float64(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-5, "row %d", j)
	}
}

func TestNormalize_ExactMatchTakesTheWeight(t *testing.T) {
	lut := NewLUT(1, 3)
	copy(lut.Distances, []float32{0, 0, 5})

	require.NoError(t, Normalize(lut, nil))

	w, _ := lut.Row(0)
	assert.InDelta(t, 0.5, w[0], 1e-6)
	assert.InDelta(t, 0.5, w[1], 1e-6)
	assert.InDelta(t, 5e-7, w[2], 1e-7)
}

func TestNormalize_ReferenceScaleIsNearestNeighbor(t *testing.T) {
	lut := NewLUT(1, 2)
	copy(lut.Distances, []float32{1, 2})

	require.NoError(t, Normalize(lut, nil))

	w, _ := lut.Row(0)
	e1, e2 := math.Exp(-1), math.Exp(-2)
	assert.InDelta(t, e1/(e1+e2), w[0], 1e-6)
	assert.InDelta(t, e2/(e1+e2), w[1], 1e-6)
}

func TestNormalize_RejectsNormalizedTable(t *testing.T) {
	lut := NewLUT(1, 1)
	lut.Distances[0] = 1

	assert.ErrorIs(t, lut.RequireNormalized(), core.ErrPhase)
	require.NoError(t, Normalize(lut, nil))
	assert.NoError(t, lut.RequireNormalized())

	err := Normalize(lut, nil)
	assert.ErrorIs(t, err, core.ErrPhase)
	assert.ErrorIs(t, WeighSMap(lut, 1, nil), core.ErrPhase)
}

func TestWeighSMap_ThetaZeroIsUniform(t *testing.T) {
	lut := NewLUT(1, 4)
	copy(lut.Distances, []float32{0.5, 1, 2, ExcludedDistance})

	require.NoError(t, WeighSMap(lut, 0, nil))

	w, _ := lut.Row(0)
	for k := 0; k < 3; k++ {
		assert.InDelta(t, 1.0/3, w[k], 1e-6)
	}
	assert.Equal(t, float32(0), w[3])
}

func TestWeighSMap_RowWithoutNeighborsFails(t *testing.T) {
	lut := NewLUT(2, 1)
	copy(lut.Distances, []float32{1, ExcludedDistance})

	err := WeighSMap(lut, 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrLibraryTooSmall)
	assert.Contains(t, err.Error(), "point 1")
	assert.Equal(t, PhaseRaw, lut.Phase())

	w, _ := lut.Row(1)
	assert.Equal(t, float32(0), w[0])
}

func TestWeighSMap_LargerThetaFavorsNearNeighbors(t *testing.T) {
	weights := func(theta float32) []float32 {
		lut := NewLUT(1, 3)
		copy(lut.Distances, []float32{1, 2, 3})
		require.NoError(t, WeighSMap(lut, theta, nil))
		w, _ := lut.Row(0)
		return w
	}

	low, high := weights(1), weights(8)
	assert.Greater(t, high[0], low[0])
	assert.Less(t, high[2], low[2])
	assert.InDelta(t, 1.0, float64(high[0]+high[1]+high[2]), 1e-5)
}

func TestWorkspace_GrowsOnDemand(t *testing.T) {
	ws := NewWorkspace(4, 4)
	assert.Equal(t, 16, ws.Cap())

	ws.ensure(8)
	assert.Equal(t, 16, ws.Cap())

	ws.ensure(100)
	assert.Equal(t, 100, ws.Cap())
}
