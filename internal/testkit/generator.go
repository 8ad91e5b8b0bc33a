package testkit

import (
	"math"
	"math/rand"

	"goedm/domain/edm"
)

// SeriesGeneratorConfig configures the synthetic series generator
type SeriesGeneratorConfig struct {
	Length int     `json:"length"`
	Seed   int64   `json:"seed"`
	Step   float64 `json:"step"` // sine phase increment per sample

	// Coupled logistic map: x drives y through BetaYX, y feeds back
	// weakly through BetaXY
	RX     float64 `json:"rx"`
	RY     float64 `json:"ry"`
	BetaXY float64 `json:"beta_xy"`
	BetaYX float64 `json:"beta_yx"`
	X0     float64 `json:"x0"`
	Y0     float64 `json:"y0"`
}

// DefaultSeriesConfig returns the parameters used by the smoke checks
func DefaultSeriesConfig() SeriesGeneratorConfig {
	return SeriesGeneratorConfig{
		Length: 500,
		Seed:   42,
		Step:   0.17,
		RX:     3.8,
		RY:     3.5,
		BetaXY: 0.02,
		BetaYX: 0.1,
		X0:     0.4,
		Y0:     0.2,
	}
}

// SeriesGenerator produces deterministic test series
type SeriesGenerator struct {
	config SeriesGeneratorConfig
	rng    *rand.Rand
}

// NewSeriesGenerator creates a generator; equal configs yield equal series
func NewSeriesGenerator(config SeriesGeneratorConfig) *SeriesGenerator {
	return &SeriesGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Sine returns sin(Step * t)
func (g *SeriesGenerator) Sine() edm.Sequence {
	x := make(edm.Sequence, g.config.Length)
	for i := range x {
		x[i] = float32(math.Sin(g.config.Step * float64(i)))
	}
	return x
}

// CoupledLogistic returns the two-species logistic system. Iteration runs
// in float64 and is stored as float32.
func (g *SeriesGenerator) CoupledLogistic() (x, y edm.Sequence) {
	c := g.config
	x, y = make(edm.Sequence, c.Length), make(edm.Sequence, c.Length)
	xv, yv := c.X0, c.Y0
	for i := 0; i < c.Length; i++ {
		x[i], y[i] = float32(xv), float32(yv)
		xv, yv = xv*(c.RX-c.RX*xv-c.BetaXY*yv), yv*(c.RY-c.RY*yv-c.BetaYX*xv)
	}
	return x, y
}

// WhiteNoise returns standard normal samples from the seeded stream
func (g *SeriesGenerator) WhiteNoise() edm.Sequence {
	x := make(edm.Sequence, g.config.Length)
	for i := range x {
		x[i] = float32(g.rng.NormFloat64())
	}
	return x
}

// Headers names the columns returned by Dataset
var Headers = []string{"sine", "logistic_x", "logistic_y", "noise"}

// Dataset returns sine, coupled logistic x and y, and white noise as
// columns of one dataset
func (g *SeriesGenerator) Dataset() (*edm.Dataset, error) {
	x, y := g.CoupledLogistic()
	return edm.DatasetFromColumns(g.Sine(), x, y, g.WhiteNoise())
}
