package skill

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

func widen(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

func TestPearson_MatchesGonum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, n := range []int{2, 3, 10, 100, 1000} {
		x := make([]float32, n)
		y := make([]float32, n)
		for i := range x {
			x[i] = float32(rng.NormFloat64())
			y[i] = 0.6*x[i] + float32(rng.NormFloat64())
		}

		want := stat.Correlation(widen(x), widen(y), nil)
		assert.InDelta(t, want, Pearson(x, y), 1e-4, "n=%d", n)
	}
}

func TestPearson_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		x, y []float32
		want float32
	}{
		{"perfect", []float32{1, 2, 3, 4}, []float32{2, 4, 6, 8}, 1},
		{"anti", []float32{1, 2, 3, 4}, []float32{4, 3, 2, 1}, -1},
		{"constant", []float32{1, 2, 3}, []float32{5, 5, 5}, 0},
		{"length mismatch", []float32{1, 2, 3}, []float32{1, 2}, 0},
		{"single pair", []float32{1}, []float32{1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Pearson(tt.x, tt.y)
			assert.InDelta(t, tt.want, r, 1e-6)
			assert.LessOrEqual(t, r, float32(1))
			assert.GreaterOrEqual(t, r, float32(-1))
		})
	}
}

func TestAligned(t *testing.T) {
	target := []float32{0, 1, 2, 3, 4, 5}
	prediction := []float32{1, 2, 3, 4, 5, 9, 9}

	assert.InDelta(t, 1.0, Aligned(target, prediction, 1), 1e-6)
	assert.Equal(t, float32(0), Aligned(target, prediction, 6))
	assert.Equal(t, float32(0), Aligned(target, prediction, -1))
}
