package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// isolate runs the test from an empty directory with no user config.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:1234", cfg.LMStudio.BaseURL)
	assert.Equal(t, "google/gemma-3n-e4b", cfg.LMStudio.Model)
	assert.Equal(t, 120, cfg.LMStudio.TimeoutSecs)
	assert.Zero(t, cfg.LMStudio.RatePerSec)
	assert.Equal(t, 8, cfg.Classify.Workers)
	assert.Equal(t, 2000, cfg.Classify.AbstractMaxChars)
	assert.Equal(t, 100, cfg.Classify.ProgressEvery)
	assert.Equal(t, "2021 Review", cfg.Merge.Provenance)
	assert.False(t, cfg.Merge.Strict)
	assert.Equal(t, filepath.Join(".audits", "progress.db"), cfg.Ledger.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_WorkingDirectoryFile(t *testing.T) {
	dir := isolate(t)
	yaml := "lmstudio:\n  model: qwen/qwen3-8b\nclassify:\n  workers: 2\nmerge:\n  strict: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "audits.yaml"), []byte(yaml), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "qwen/qwen3-8b", cfg.LMStudio.Model)
	assert.Equal(t, 2, cfg.Classify.Workers)
	assert.True(t, cfg.Merge.Strict)
	assert.Equal(t, "http://localhost:1234", cfg.LMStudio.BaseURL)
}

func TestLoad_UserConfigDir(t *testing.T) {
	dir := isolate(t)
	userDir := filepath.Join(dir, "xdg", "audits")
	require.NoError(t, os.MkdirAll(userDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "audits.yaml"), []byte("log:\n  level: debug\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "audits.yaml"), []byte("lmstudio:\n  base_url: http://file:1\n"), 0644))
	t.Setenv("AUDITS_LMSTUDIO_BASE_URL", "http://env:2")
	t.Setenv("AUDITS_CLASSIFY_WORKERS", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://env:2", cfg.LMStudio.BaseURL)
	assert.Equal(t, 3, cfg.Classify.Workers)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classify:\n  workers: 0\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classify.workers")
}

func TestValidate_LogFormat(t *testing.T) {
	cfg := Config{
		LMStudio: LMStudioConfig{TimeoutSecs: 1},
		Classify: ClassifyConfig{Workers: 1},
		Log:      LogConfig{Level: "info", Format: "xml"},
	}
	assert.Error(t, cfg.Validate())
	cfg.Log.Format = "json"
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotenv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AUDITS_LMSTUDIO_MODEL=from-dotenv\n"), 0644))
	t.Setenv("AUDITS_LMSTUDIO_MODEL", "")
	os.Unsetenv("AUDITS_LMSTUDIO_MODEL")

	require.NoError(t, LoadDotenv())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.LMStudio.Model)
}

func TestLoadDotenv_Missing(t *testing.T) {
	isolate(t)
	assert.NoError(t, LoadDotenv())
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/audits", Dir())
}

func TestInitLogger(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, zap.L().Core().Enabled(zapcore.WarnLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "console"}))
}
