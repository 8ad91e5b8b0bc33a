package api

import (
	"fmt"

	"goedm/adapters/stats/engine"
	"goedm/domain/core"
	"goedm/domain/edm"
	"goedm/domain/run"
	"goedm/internal/config"
	"goedm/internal/parallel"
)

// Service maps API requests onto engine calls, filling in the configured
// default arguments and recording a run manifest for each call.
type Service struct {
	engine   *engine.Engine
	defaults config.EngineConfig
}

// NewService creates a service over an engine
func NewService(e *engine.Engine, defaults config.EngineConfig) *Service {
	return &Service{engine: e, defaults: defaults}
}

func (s *Service) params(emb Embedding, E, tp int) edm.Params {
	p := edm.Params{E: E, Tau: s.defaults.Tau, Tp: tp}
	if emb.E != nil {
		p.E = *emb.E
	}
	if emb.Tau != nil {
		p.Tau = *emb.Tau
	}
	if emb.Tp != nil {
		p.Tp = *emb.Tp
	}
	return p
}

func (s *Service) theta(req PredictRequest) float32 {
	if req.Theta != nil {
		return float32(*req.Theta)
	}
	return float32(s.defaults.Theta)
}

func respond(m *run.Manifest, result interface{}) *Response {
	m.Finish()
	return &Response{RunID: m.RunID, Manifest: m, Result: result}
}

// Edim selects the embedding dimension of a single series
func (s *Service) Edim(req EdimRequest) (*Response, error) {
	x, err := req.Data.Sequence()
	if err != nil {
		return nil, err
	}

	eMax := s.defaults.EMax
	if req.EMax != nil {
		eMax = *req.EMax
	}
	p := s.params(req.Embedding, eMax, s.defaults.Tp)
	p.E = eMax

	m := run.NewManifest(engine.OpEdim, p, "", x)
	res, err := s.engine.Edim(x, p.E, p.Tau, p.Tp)
	if err != nil {
		return nil, err
	}
	return respond(m, res), nil
}

// libraryAndTarget resolves the optional target and checks ranks
func libraryAndTarget(req PredictRequest) (Array, Array, error) {
	target := req.Library
	if req.Target != nil {
		target = *req.Target
	}
	if req.Library.Rank != target.Rank {
		return Array{}, Array{}, core.NewShapeError("library and target must have same dimensionality")
	}
	return req.Library, target, nil
}

// Simplex predicts with Simplex projection. Rank-2 inputs use the
// multivariate embedding.
func (s *Service) Simplex(req PredictRequest) (*Response, error) {
	lib, tgt, err := libraryAndTarget(req)
	if err != nil {
		return nil, err
	}
	p := s.params(req.Embedding, s.defaults.E, s.defaults.Tp)

	if lib.Rank == 2 {
		library, err := lib.Dataset()
		if err != nil {
			return nil, err
		}
		// an omitted target shares storage with the library so self
		// matches are excluded
		target := library
		if req.Target != nil {
			if target, err = tgt.Dataset(); err != nil {
				return nil, err
			}
		}
		m := run.NewManifest(engine.OpSimplexMulti, p, "", append(library.Columns(), target.Columns()...)...)
		pred, err := s.engine.SimplexDataset(library, target, p)
		if err != nil {
			return nil, err
		}
		return respond(m, PredictionResult{Prediction: Array{Rank: 2, Matrix: pred.Records()}}), nil
	}

	library, target, err := sequences(lib, tgt)
	if err != nil {
		return nil, err
	}
	m := run.NewManifest(engine.OpSimplex, p, "", library, target)
	pred, err := s.engine.Simplex(library, target, p)
	if err != nil {
		return nil, err
	}
	return respond(m, PredictionResult{Prediction: Array{Rank: 1, Vector: pred}}), nil
}

// EvalSimplex scores Simplex on the observed future
func (s *Service) EvalSimplex(req PredictRequest) (*Response, error) {
	library, target, err := s.univariate(req)
	if err != nil {
		return nil, err
	}
	p := s.params(req.Embedding, s.defaults.E, s.defaults.Tp)

	m := run.NewManifest(engine.OpEvalSimplex, p, "", library, target)
	rho, err := s.engine.EvalSimplex(library, target, p)
	if err != nil {
		return nil, err
	}
	return respond(m, SkillResult{Rho: rho}), nil
}

// SMap predicts with S-Map
func (s *Service) SMap(req PredictRequest) (*Response, error) {
	library, target, err := s.univariate(req)
	if err != nil {
		return nil, err
	}
	p := s.params(req.Embedding, s.defaults.SMapE, s.defaults.Tp)
	theta := s.theta(req)

	m := run.NewManifest(engine.OpSMap, p, fmt.Sprintf("theta=%g", theta), library, target)
	pred, err := s.engine.SMap(library, target, p, theta)
	if err != nil {
		return nil, err
	}
	return respond(m, PredictionResult{Prediction: Array{Rank: 1, Vector: pred}}), nil
}

// EvalSMap scores S-Map on the observed future
func (s *Service) EvalSMap(req PredictRequest) (*Response, error) {
	library, target, err := s.univariate(req)
	if err != nil {
		return nil, err
	}
	p := s.params(req.Embedding, s.defaults.SMapE, s.defaults.Tp)
	theta := s.theta(req)

	m := run.NewManifest(engine.OpEvalSMap, p, fmt.Sprintf("theta=%g", theta), library, target)
	rho, err := s.engine.EvalSMap(library, target, p, theta)
	if err != nil {
		return nil, err
	}
	return respond(m, SkillResult{Rho: rho}), nil
}

// XMap cross maps every pair of columns
func (s *Service) XMap(req XMapRequest) (*Response, error) {
	ds, err := req.Data.Dataset()
	if err != nil {
		return nil, err
	}
	p := s.params(req.Embedding, 0, s.defaults.XMapTp)

	m := run.NewManifest(engine.OpXMap, p, fmt.Sprintf("edims=%v", req.Edims), ds.Columns()...)
	cm, err := s.engine.XMap(ds, req.Edims, p.Tau, p.Tp)
	if err != nil {
		return nil, err
	}
	summary, err := engine.Summarize(cm)
	if err != nil {
		return nil, err
	}
	return respond(m, XMapResult{Matrix: cm.Matrix(), Summary: summary}), nil
}

// Convergence runs convergent cross mapping
func (s *Service) Convergence(req ConvergenceRequest) (*Response, error) {
	library, target, err := sequences(req.Library, req.Target)
	if err != nil {
		return nil, err
	}
	p := s.params(req.Embedding, s.defaults.E, s.defaults.XMapTp)

	m := run.NewManifest(engine.OpConvergence, p, fmt.Sprintf("sizes=%v", req.LibrarySizes), library, target)
	res, err := s.engine.Convergence(library, target, p, req.LibrarySizes)
	if err != nil {
		return nil, err
	}
	return respond(m, res), nil
}

func (s *Service) univariate(req PredictRequest) (edm.Sequence, edm.Sequence, error) {
	lib, tgt, err := libraryAndTarget(req)
	if err != nil {
		return nil, nil, err
	}
	return sequences(lib, tgt)
}

func sequences(lib, tgt Array) (edm.Sequence, edm.Sequence, error) {
	if lib.Rank != 1 || tgt.Rank != 1 {
		return nil, nil, core.NewShapeError("library and target must be 1D arrays")
	}
	return lib.Vector, tgt.Vector, nil
}

// ConfigResult reports the runtime and the default arguments in effect
type ConfigResult struct {
	Runtime  parallel.RuntimeInfo `json:"runtime"`
	Defaults config.EngineConfig  `json:"defaults"`
}

// Config describes the engine configuration
func (s *Service) Config() ConfigResult {
	return ConfigResult{Runtime: s.engine.Runtime(), Defaults: s.defaults}
}
