package testkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesGenerator_Deterministic(t *testing.T) {
	cfg := DefaultSeriesConfig()
	a, err := NewSeriesGenerator(cfg).Dataset()
	require.NoError(t, err)
	b, err := NewSeriesGenerator(cfg).Dataset()
	require.NoError(t, err)

	assert.Equal(t, a.Records(), b.Records())
	assert.Equal(t, cfg.Length, a.Rows())
	assert.Equal(t, len(Headers), a.Cols())

	cfg.Seed++
	c, err := NewSeriesGenerator(cfg).Dataset()
	require.NoError(t, err)
	assert.NotEqual(t, a.Column(3), c.Column(3), "noise depends on the seed")
	assert.Equal(t, a.Column(0), c.Column(0), "sine does not")
}

func TestSeriesGenerator_LogisticStaysInUnitInterval(t *testing.T) {
	x, y := NewSeriesGenerator(DefaultSeriesConfig()).CoupledLogistic()
	for i := range x {
		assert.True(t, x[i] > 0 && x[i] < 1, "x[%d]=%v", i, x[i])
		assert.True(t, y[i] > 0 && y[i] < 1, "y[%d]=%v", i, y[i])
	}
	assert.Equal(t, float32(0.4), x[0])
	assert.Equal(t, float32(0.2), y[0])
}

func TestSeriesGenerator_Sine(t *testing.T) {
	cfg := DefaultSeriesConfig()
	cfg.Length = 10
	s := NewSeriesGenerator(cfg).Sine()
	require.Len(t, s, 10)
	assert.Equal(t, float32(0), s[0])
	assert.InDelta(t, 0.1692, s[1], 1e-4)
}
