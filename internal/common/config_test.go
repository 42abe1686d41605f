package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, int64(50<<20), cfg.Upload.MaxFileSize)
	assert.Equal(t, 100, cfg.Parse.MinTextLength)
	assert.Equal(t, 50.0, cfg.Parse.MinCharsPerPage)
	assert.Equal(t, 0.3, cfg.Parse.MinMeaningfulRatio)
	assert.Equal(t, []float64{2.0, 1.5, 1.0}, cfg.Parse.RenderScales)
	assert.Equal(t, 18<<20, cfg.Parse.MaxTotalImageBytes)
	assert.Equal(t, 12000, cfg.LLM.MaxTextChars)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
upload:
  dir: /var/contracts
parse:
  max_pages: 5
  render_scales: [1.0]
llm:
  provider: openai
  model: gpt-4o-mini
  timeout: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("PARSE_MAX_PAGES", "7")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/contracts", cfg.Upload.Dir)
	assert.Equal(t, 7, cfg.Parse.MaxPages)
	assert.Equal(t, []float64{1.0}, cfg.Parse.RenderScales)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.NoError(t, cfg.Validate(true))
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate(false))

	err := cfg.Validate(true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "llm.api_key")

	cfg.Parse.MinMeaningfulRatio = 1.5
	cfg.Parse.RenderScales = nil
	err = cfg.Validate(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse.min_meaningful_ratio")
	assert.Contains(t, err.Error(), "parse.render_scales")
}

func TestLoadConfig_ZeroTemperatureIsKept(t *testing.T) {
	t.Setenv("LLM_TEMPERATURE", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  temperature: 0\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Zero(t, *cfg.LLM.Temperature)

	t.Setenv("LLM_TEMPERATURE", "0.4")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, *cfg.LLM.Temperature, 1e-6)
}

func TestLoadConfig_IngestRoots(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("INGEST_ROOTS", "")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Server.IngestRoots)

	t.Setenv("INGEST_ROOTS", "/srv/contracts"+string(os.PathListSeparator)+" /srv/inbox ")
	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/contracts", "/srv/inbox"}, cfg.Server.IngestRoots)
}
