package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "goedm/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("EDM_CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Engine.EMax)
	assert.Equal(t, 1, cfg.Engine.Tau)
	assert.Equal(t, 1, cfg.Engine.Tp)
	assert.Equal(t, 0, cfg.Engine.XMapTp)
	assert.Equal(t, 2, cfg.Engine.SMapE)
	assert.Equal(t, 1.0, cfg.Engine.Theta)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Positive(t, cfg.Engine.ResolvedWorkers())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  workers: 3
  e_max: 12
  theta: 4
server:
  port: "9000"
  shutdown_timeout: 3s
metrics:
  enabled: false
`), 0o644))

	t.Setenv("EDM_CONFIG_FILE", path)
	t.Setenv("EDM_E_MAX", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Engine.Workers)
	assert.Equal(t, 3, cfg.Engine.ResolvedWorkers())
	assert.Equal(t, 8, cfg.Engine.EMax, "environment wins over the file")
	assert.Equal(t, 4.0, cfg.Engine.Theta)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("EDM_CONFIG_FILE", "")

	tests := map[string]string{
		"EDM_TAU":     "0",
		"EDM_TP":      "-1",
		"EDM_WORKERS": "-2",
		"EDM_THETA":   "-0.5",
		"EDM_E_MAX":   "0",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
		})
	}
}

func TestLoadFile_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [unclosed"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
