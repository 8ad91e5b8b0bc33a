package run

import (
	"time"

	"goedm/domain/core"
	"goedm/domain/edm"
)

// CodeVersion is stamped into every fingerprint. Bump it whenever a kernel
// change alters numerical output.
const CodeVersion = "goedm/1"

// Manifest records one batch computation: what was asked, on which data,
// and how long it took. It accompanies every API response and CLI --json
// output.
type Manifest struct {
	RunID       core.RunID     `json:"run_id"`
	Operation   string         `json:"operation"`
	Rows        int            `json:"rows"`
	Series      int            `json:"series"`
	Fingerprint RunFingerprint `json:"fingerprint"`
	RuntimeMs   int64          `json:"runtime_ms"`
	CreatedAt   core.Timestamp `json:"created_at"`
}

// NewManifest creates a manifest for an operation over the given columns
func NewManifest(operation string, params edm.Params, extra string, columns ...edm.Sequence) *Manifest {
	raw := make([][]float32, len(columns))
	rows := 0
	for i, c := range columns {
		raw[i] = c
		rows = max(rows, len(c))
	}

	return &Manifest{
		RunID:       core.NewRunID(),
		Operation:   operation,
		Rows:        rows,
		Series:      len(columns),
		Fingerprint: NewRunFingerprint(operation, params, extra, core.ComputeDataHash(raw...), CodeVersion),
		CreatedAt:   core.Now(),
	}
}

// Finish stamps the elapsed time since the manifest was created
func (m *Manifest) Finish() {
	m.RuntimeMs = m.CreatedAt.Since().Milliseconds()
}

// SetRuntime sets the execution time explicitly
func (m *Manifest) SetRuntime(d time.Duration) {
	m.RuntimeMs = d.Milliseconds()
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewInvalidArgument("run_id cannot be empty")
	}
	if m.Operation == "" {
		return core.NewInvalidArgument("operation cannot be empty")
	}
	if m.Fingerprint.Fingerprint.IsEmpty() {
		return core.NewInvalidArgument("fingerprint cannot be empty")
	}
	return nil
}
