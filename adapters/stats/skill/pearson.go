// Package skill scores predictions against observations.
package skill

import (
	"github.com/chewxy/math32"
	"github.com/viterin/vek/vek32"
)

// Pearson returns the correlation coefficient of x and y. It returns 0 when
// the lengths differ, fewer than two pairs exist, or either side has zero
// variance, and the result is clamped to [-1, 1].
func Pearson(x, y []float32) float32 {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0
	}

	dx := vek32.SubNumber(x, vek32.Mean(x))
	dy := vek32.SubNumber(y, vek32.Mean(y))

	sxx := vek32.Dot(dx, dx)
	syy := vek32.Dot(dy, dy)
	if sxx <= 0 || syy <= 0 {
		return 0
	}

	r := vek32.Dot(dx, dy) / (math32.Sqrt(sxx) * math32.Sqrt(syy))
	return min(max(r, -1), 1)
}

// Aligned scores a prediction produced with the given shift against its
// target: observed values start at target[shift], predictions are truncated
// to the same length.
func Aligned(target, prediction []float32, shift int) float32 {
	if shift < 0 || shift >= len(target) {
		return 0
	}

	observed := target[shift:]
	n := min(len(observed), len(prediction))
	return Pearson(observed[:n], prediction[:n])
}
