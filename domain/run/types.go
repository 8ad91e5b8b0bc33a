package run

import (
	"crypto/sha256"
	"fmt"

	"goedm/domain/core"
	"goedm/domain/edm"
)

// RunFingerprint identifies a computation by everything that determines its
// output. Two runs with the same fingerprint produce the same numbers.
type RunFingerprint struct {
	Operation   string        `json:"operation"`
	Params      edm.Params    `json:"params"`
	Extra       string        `json:"extra,omitempty"` // theta, edims, library sizes
	DataHash    core.DataHash `json:"data_hash"`
	CodeVersion string        `json:"code_version"`
	Fingerprint core.Hash     `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(operation string, params edm.Params, extra string,
	dataHash core.DataHash, codeVersion string) RunFingerprint {

	return RunFingerprint{
		Operation:   operation,
		Params:      params,
		Extra:       extra,
		DataHash:    dataHash,
		CodeVersion: codeVersion,
		Fingerprint: computeRunFingerprint(operation, params, extra, dataHash, codeVersion),
	}
}

// computeRunFingerprint generates deterministic hash from all determinism parameters
func computeRunFingerprint(operation string, params edm.Params, extra string,
	dataHash core.DataHash, codeVersion string) core.Hash {

	data := fmt.Sprintf("op:%s|E:%d|tau:%d|Tp:%d|extra:%s|data:%s|code:%s",
		operation, params.E, params.Tau, params.Tp, extra, dataHash, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}
