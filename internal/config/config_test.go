package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultIsValid tests that the defaults pass validation
func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

// TestLoadKeepsDefaults tests partial YAML files
func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := `
update_interval: 0.5
ocr:
  language: deu
  ppi: 144
dilation:
  kernel_width: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.UpdateInterval)
	assert.Equal(t, "deu", cfg.OCR.Language)
	assert.Equal(t, 144, cfg.OCR.PPI)
	assert.Equal(t, 5, cfg.Dilation.KernelWidth)
	assert.Equal(t, 3, cfg.Dilation.KernelHeight, "unset fields keep defaults")
	assert.Equal(t, 1, cfg.OCR.PoolSize)
}

// TestSaveLoadRoundTrip tests the atomic save
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.OCR.Driver = "capi"
	cfg.Scales.X = 12
	require.NoError(t, Save(path, cfg))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be renamed away")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// TestLoadOrDefaultAppliesEnv tests environment overrides on top of defaults
func TestLoadOrDefaultAppliesEnv(t *testing.T) {
	t.Setenv("VB_OCR_LANGUAGE", "fra")
	t.Setenv("VB_OCR_POOL_SIZE", "4")
	t.Setenv("VB_DILATION_ENABLED", "false")
	t.Setenv("VB_SERVER_ADDR", ":9999")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "fra", cfg.OCR.Language)
	assert.Equal(t, 4, cfg.OCR.PoolSize)
	assert.False(t, cfg.Dilation.Enabled)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 1.0, cfg.UpdateInterval)
}

// TestLoadOrDefaultRejectsInvalid tests validation errors
func TestLoadOrDefaultRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("update_interval: 0\nocr:\n  pool_size: 0\n"), 0644))

	_, err := LoadOrDefault(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update_interval")
	assert.Contains(t, err.Error(), "pool_size")
}

// TestLoadMalformed tests YAML syntax errors
func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ocr: [unterminated"), 0644))

	_, err := LoadOrDefault(path)
	assert.Error(t, err)
}

// TestWriteDefault tests first-run creation without overwriting later edits
func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "config.yaml")

	created, err := WriteDefault(path)
	require.NoError(t, err)
	assert.True(t, created)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded)

	require.NoError(t, os.WriteFile(path, []byte("update_interval: 2\n"), 0644))
	created, err = WriteDefault(path)
	require.NoError(t, err)
	assert.False(t, created)

	loaded, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, loaded.UpdateInterval, "existing file is left alone")
}

// TestPathFromEnv tests the configuration path override
func TestPathFromEnv(t *testing.T) {
	t.Setenv("VB_CONFIG", "/tmp/vb.yaml")
	assert.Equal(t, "/tmp/vb.yaml", Path())
}
