// Package engine is the public face of the EDM numerical core. Every method
// is a fresh batch computation: inputs are validated up front, kernels run on
// the engine's worker pool, and no state survives the call.
package engine

import (
	"time"

	"goedm/adapters/stats/knn"
	"goedm/adapters/stats/projection"
	"goedm/domain/edm"
	"goedm/internal"
	"goedm/internal/metrics"
	"goedm/internal/parallel"
)

// Operation names used for metrics and logs
const (
	OpEdim         = "edim"
	OpSimplex      = "simplex"
	OpEvalSimplex  = "eval_simplex"
	OpSMap         = "smap"
	OpEvalSMap     = "eval_smap"
	OpXMap         = "xmap"
	OpConvergence  = "ccm"
	OpSimplexMulti = "simplex_dataset"
)

// Engine runs EDM operations on a bounded worker pool. An Engine is safe for
// concurrent use; each call allocates its own scratch arena.
type Engine struct {
	pool    *parallel.Pool
	logger  *internal.Logger
	metrics *metrics.Registry
}

// Option configures an Engine
type Option func(*Engine)

// WithWorkers sets the kernel worker count; n <= 0 means GOMAXPROCS
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.pool = parallel.NewPool(n)
	}
}

// WithLogger replaces the default logger
func WithLogger(l *internal.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics attaches a Prometheus registry
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine
func New(opts ...Option) *Engine {
	e := &Engine{
		pool:   parallel.NewPool(0),
		logger: internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("engine")
	return e
}

// Workers returns the kernel worker count
func (e *Engine) Workers() int {
	return e.pool.Workers()
}

// Runtime describes the build and parallel configuration
func (e *Engine) Runtime() parallel.RuntimeInfo {
	return parallel.Info(e.pool)
}

// RuntimeConfig renders Runtime as text
func (e *Engine) RuntimeConfig() string {
	return e.Runtime().String()
}

func (e *Engine) observe(op string, started time.Time, err error) {
	e.metrics.Observe(op, started, err)
	if err != nil {
		e.logger.Debug("%s rejected: %v", op, err)
		return
	}
	e.logger.Debug("%s finished in %s", op, time.Since(started))
}

// Simplex predicts target from library with an (E+1)-neighbor weighted
// average of Tp-ahead values.
func (e *Engine) Simplex(library, target edm.Sequence, p edm.Params) (pred edm.Sequence, err error) {
	defer func(started time.Time) { e.observe(OpSimplex, started, err) }(time.Now())

	ws := knn.NewWorkspace(len(library), len(target))
	return projection.NewSimplex(ws, e.pool).Predict(library, target, p)
}

// SimplexDataset is the multivariate Simplex over equal-width datasets
func (e *Engine) SimplexDataset(library, target *edm.Dataset, p edm.Params) (pred *edm.Dataset, err error) {
	defer func(started time.Time) { e.observe(OpSimplexMulti, started, err) }(time.Now())

	ws := knn.NewWorkspace(library.Rows(), target.Rows())
	return projection.NewSimplex(ws, e.pool).PredictDataset(library, target, p)
}

// EvalSimplex returns the Pearson skill of Simplex on the observed future
func (e *Engine) EvalSimplex(library, target edm.Sequence, p edm.Params) (r float32, err error) {
	defer func(started time.Time) { e.observe(OpEvalSimplex, started, err) }(time.Now())

	ws := knn.NewWorkspace(len(library), len(target))
	return projection.NewSimplex(ws, e.pool).Skill(library, target, p)
}

// SMap predicts target from library with a theta-localized linear map
func (e *Engine) SMap(library, target edm.Sequence, p edm.Params, theta float32) (pred edm.Sequence, err error) {
	defer func(started time.Time) { e.observe(OpSMap, started, err) }(time.Now())

	ws := knn.NewWorkspace(len(library), len(target))
	return projection.NewSMap(ws, e.pool).Predict(library, target, p, theta)
}

// EvalSMap returns the Pearson skill of SMap on the observed future
func (e *Engine) EvalSMap(library, target edm.Sequence, p edm.Params, theta float32) (r float32, err error) {
	defer func(started time.Time) { e.observe(OpEvalSMap, started, err) }(time.Now())

	ws := knn.NewWorkspace(len(library), len(target))
	return projection.NewSMap(ws, e.pool).Skill(library, target, p, theta)
}
