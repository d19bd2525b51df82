package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.Strobing.PulseVectorDriverMs)
	assert.NotEmpty(t, cfg.Strobing.PulseVectorPutterMs)
}

func TestLoadPartialOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.json")
	partial := map[string]any{
		"ipc": map[string]any{
			"cam2_image_timeout_ms": 9000,
		},
	}
	data, err := json.Marshal(partial)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.IPC.Cam2ImageTimeoutMs)
	// Fields not present in the override keep the default.
	assert.Equal(t, Default().Strobing.BaudFast, cfg.Strobing.BaudFast)
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.txt")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	bad := map[string]any{
		"strobing": map[string]any{
			"pulse_vector_driver": []float64{},
		},
	}
	data, err := json.Marshal(bad)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidateCatchesBadBaud(t *testing.T) {
	cfg := Default()
	cfg.Strobing.BaudFast = 0
	assert.Error(t, cfg.Validate())
}
