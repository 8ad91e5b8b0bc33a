package api

import (
	"bytes"
	"encoding/json"

	"goedm/adapters/stats/engine"
	"goedm/domain/core"
	"goedm/domain/edm"
	"goedm/domain/run"
)

// Array is a JSON number array of rank 1 (one series) or rank 2 (rows of
// observations, one column per series).
type Array struct {
	Rank   int
	Vector []float32
	Matrix [][]float32
}

// UnmarshalJSON accepts [x, ...] or [[x, ...], ...]
func (a *Array) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Array{}
		return nil
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err == nil {
		*a = Array{Rank: 1, Vector: vec}
		return nil
	}
	var mat [][]float32
	if err := json.Unmarshal(data, &mat); err == nil {
		*a = Array{Rank: 2, Matrix: mat}
		return nil
	}
	return core.NewShapeError("library and target must be 1D or 2D arrays")
}

// MarshalJSON writes the array back in its original rank
func (a Array) MarshalJSON() ([]byte, error) {
	switch a.Rank {
	case 1:
		return json.Marshal(a.Vector)
	case 2:
		return json.Marshal(a.Matrix)
	default:
		return []byte("null"), nil
	}
}

// Sequence returns a rank-1 array as a sequence
func (a Array) Sequence() (edm.Sequence, error) {
	if a.Rank != 1 {
		return nil, core.NewShapeError("expected a 1D array")
	}
	return edm.Sequence(a.Vector), nil
}

// Dataset returns a rank-2 array as a dataset
func (a Array) Dataset() (*edm.Dataset, error) {
	if a.Rank != 2 {
		return nil, core.NewShapeError("expected a 2D array")
	}
	return edm.DatasetFromRows(a.Matrix)
}

// Embedding holds optional (E, tau, Tp); missing fields take the server
// defaults of the operation.
type Embedding struct {
	E   *int `json:"E,omitempty"`
	Tau *int `json:"tau,omitempty"`
	Tp  *int `json:"Tp,omitempty"`
}

// EdimRequest asks for the optimal embedding dimension of one series
type EdimRequest struct {
	Data Array `json:"data"`
	EMax *int  `json:"E_max,omitempty"`
	Embedding
}

// PredictRequest drives simplex, smap and their eval variants. Target
// defaults to Library.
type PredictRequest struct {
	Library Array    `json:"library"`
	Target  *Array   `json:"target,omitempty"`
	Theta   *float64 `json:"theta,omitempty"`
	Embedding
}

// XMapRequest cross maps every column of Data
type XMapRequest struct {
	Data  Array `json:"data"`
	Edims []int `json:"edims"`
	Embedding
}

// ConvergenceRequest cross maps Target from Library over growing libraries
type ConvergenceRequest struct {
	Library      Array `json:"library"`
	Target       Array `json:"target"`
	LibrarySizes []int `json:"library_sizes,omitempty"`
	Embedding
}

// Response wraps every successful result
type Response struct {
	RunID    core.RunID    `json:"run_id"`
	Manifest *run.Manifest `json:"manifest"`
	Result   interface{}   `json:"result"`
}

// ErrorBody is the error payload
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps every failure
type ErrorResponse struct {
	RunID core.RunID `json:"run_id"`
	Error ErrorBody  `json:"error"`
}

// PredictionResult is returned by simplex and smap
type PredictionResult struct {
	Prediction Array `json:"prediction"`
}

// SkillResult is returned by the eval routes
type SkillResult struct {
	Rho float32 `json:"rho"`
}

// XMapResult carries the skill matrix and its summary
type XMapResult struct {
	Matrix  [][]float32            `json:"matrix"`
	Summary engine.CrossMapSummary `json:"summary"`
}
