package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://api.exa.ai", cfg.Exa.BaseURL)
	assert.Equal(t, "https://api.tavily.com", cfg.Tavily.BaseURL)
	assert.Equal(t, 50, cfg.Harmonic.PageSize)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.ChatModel)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingModel)
	assert.Equal(t, 5, cfg.Pipeline.BatchSize)
	assert.Equal(t, 90, cfg.Pipeline.SearchWindowDays)
	assert.Equal(t, 10, cfg.Pipeline.ResultsPerQuery)
	assert.Equal(t, 5, cfg.Pipeline.FallbackResults)
	assert.InDelta(t, 0.6, cfg.Pipeline.ProblemConfidence, 0.001)
	assert.InDelta(t, 0.6, cfg.Pipeline.SignalConfidence, 0.001)
	assert.Equal(t, 5, cfg.Pipeline.MinClusterProblems)
	assert.InDelta(t, 0.35, cfg.Pipeline.ClusterEpsilon, 0.001)
	assert.Equal(t, 3, cfg.Pipeline.MinClusterSize)
	assert.InDelta(t, 1_000_000, cfg.Filter.MinFunding, 0.001)
	assert.Equal(t, 2018, cfg.Filter.MinFoundedYear)
	assert.Equal(t, []string{"seed", "series_a", "series_b"}, cfg.Filter.Stages)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/discovery
log:
  level: debug
  format: console
pipeline:
  batch_size: 10
  industries:
    - climate
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Pipeline.BatchSize)
	assert.Equal(t, []string{"climate"}, cfg.Pipeline.Industries)
	// Defaults still apply for unset values
	assert.Equal(t, 90, cfg.Pipeline.SearchWindowDays)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DISCOVERY_STORE_DRIVER", "sqlite")
	t.Setenv("DISCOVERY_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("DISCOVERY_PIPELINE_BATCH_SIZE", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pipeline.BatchSize)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shout", Format: "json"})
	require.Error(t, err)
}
