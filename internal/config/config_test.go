package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.LLM.Mode)
	assert.Equal(t, 3, cfg.Queue.GlobalConcurrency)
	assert.True(t, cfg.Environment.FiscalSandbox)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"llm": {"mode": "server"},
		"queue": {"global_concurrency": 5}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.LLM.Mode)
	assert.Equal(t, 5, cfg.Queue.GlobalConcurrency)
	// Fields the file does not mention keep their defaults.
	assert.Equal(t, 10, cfg.Queue.PerUserRatePerMin)
}

func TestLoad_EnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"llm": {"server_base_url": "http://from-file:1/v1"}
	}`), 0o644))

	t.Setenv("NYXLIGHT_SERVER_BASE_URL", "http://from-env:2/v1")
	t.Setenv("NYXLIGHT_FISCAL_SANDBOX", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:2/v1", cfg.LLM.ServerBaseURL)
	assert.False(t, cfg.Environment.FiscalSandbox)
}

func TestLoad_MalformedJSONFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
