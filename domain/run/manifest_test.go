package run

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"goedm/domain/core"
	"goedm/domain/edm"
)

func TestRunFingerprint_Deterministic(t *testing.T) {
	params := edm.Params{E: 3, Tau: 1, Tp: 1}
	data := core.ComputeDataHash([]float32{1, 2, 3}, []float32{4, 5, 6})

	fp1 := NewRunFingerprint("xmap", params, "edims=[3 3]", data, CodeVersion)
	fp2 := NewRunFingerprint("xmap", params, "edims=[3 3]", data, CodeVersion)

	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}
	if fp1.DataHash != data {
		t.Errorf("DataHash mismatch: %s vs %s", fp1.DataHash, data)
	}
	if fp1.Params != params {
		t.Errorf("Params mismatch: %+v vs %+v", fp1.Params, params)
	}
}

func TestRunFingerprint_Unique(t *testing.T) {
	params := edm.Params{E: 2, Tau: 1, Tp: 1}
	data := core.ComputeDataHash([]float32{1, 2, 3})
	base := NewRunFingerprint("simplex", params, "", data, CodeVersion)

	testCases := []struct {
		name string
		fp   RunFingerprint
	}{
		{"different operation", NewRunFingerprint("smap", params, "", data, CodeVersion)},
		{"different E", NewRunFingerprint("simplex", edm.Params{E: 3, Tau: 1, Tp: 1}, "", data, CodeVersion)},
		{"different extra", NewRunFingerprint("simplex", params, "theta=2", data, CodeVersion)},
		{"different data", NewRunFingerprint("simplex", params, "", core.ComputeDataHash([]float32{1, 2, 4}), CodeVersion)},
		{"different code", NewRunFingerprint("simplex", params, "", data, "goedm/0")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.fp.Fingerprint == base.Fingerprint {
				t.Errorf("Fingerprint should be different for %s", tc.name)
			}
		})
	}
}

func TestDataHash_ColumnBoundaries(t *testing.T) {
	a := core.ComputeDataHash([]float32{1, 2}, []float32{3})
	b := core.ComputeDataHash([]float32{1}, []float32{2, 3})
	if a == b {
		t.Errorf("column boundaries should change the hash")
	}
}

func TestManifest_Complete(t *testing.T) {
	x := edm.Sequence{1, 2, 3, 4}
	y := edm.Sequence{4, 3, 2, 1}

	m := NewManifest("eval_simplex", edm.Params{E: 1, Tau: 1, Tp: 1}, "", x, y)

	if m.RunID == "" {
		t.Errorf("RunID not set")
	}
	if m.Rows != 4 || m.Series != 2 {
		t.Errorf("shape not recorded: rows=%d series=%d", m.Rows, m.Series)
	}
	if m.Fingerprint.Fingerprint == "" {
		t.Errorf("Fingerprint not computed")
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Manifest validation failed: %v", err)
	}

	m.SetRuntime(1500 * time.Millisecond)
	if m.RuntimeMs != 1500 {
		t.Errorf("RuntimeMs = %d, want 1500", m.RuntimeMs)
	}
}

func TestManifest_ValidateRejectsEmpty(t *testing.T) {
	m := &Manifest{}
	err := m.Validate()
	if err == nil || !core.IsInvalidArgument(err) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestManifest_JSON(t *testing.T) {
	m := NewManifest("simplex", edm.Params{E: 2, Tau: 1, Tp: 1}, "", edm.Sequence{1, 2, 3})
	m.Finish()

	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"run_id"`, `"fingerprint"`, `"data_hash"`, `"created_at":"`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("missing %s in %s", key, raw)
		}
	}
}
