package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "ais-clarity.db", cfg.Store.SQLitePath)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentEntries)
	assert.Equal(t, 1, cfg.Batch.RetryAttempts)
	assert.Equal(t, "gemini", cfg.Analysis.Provider)
	assert.Equal(t, 60, cfg.Analysis.TimeoutSecs)
	assert.Equal(t, 30, cfg.Analysis.RequestsPerMinute)
	assert.Equal(t, 5, cfg.Analysis.CircuitFailureThreshold)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "1h", cfg.Anthropic.CacheTTL)
	assert.True(t, cfg.Seed.OnEmpty)
	assert.Empty(t, cfg.Monitoring.WebhookURL)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 1e-9)
	assert.Equal(t, "local", cfg.OCR.Provider)
	assert.Empty(t, cfg.OCR.MistralKey)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  sqlite_path: /tmp/ledger.db
log:
  level: debug
  format: console
server:
  port: 9090
analysis:
  provider: anthropic
batch:
  max_concurrent_entries: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/ledger.db", cfg.Store.SQLitePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.Analysis.Provider)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrentEntries)
	// Defaults still apply for unset values
	assert.Equal(t, 60, cfg.Analysis.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("AIS_STORE_DRIVER", "postgres")
	t.Setenv("AIS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("AIS_SERVER_PORT", "3000")
	t.Setenv("AIS_GEMINI_KEY", "g-key")
	t.Setenv("AIS_ANTHROPIC_KEY", "sk-ant")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "g-key", cfg.Gemini.Key)
	assert.Equal(t, "sk-ant", cfg.Anthropic.Key)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)

	// Missing file is fine.
	require.NoError(t, LoadDotEnv())

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AIS_GEMINI_KEY=from-dotenv\n"), 0644))
	t.Setenv("AIS_GEMINI_KEY", "")
	require.NoError(t, os.Unsetenv("AIS_GEMINI_KEY"))
	require.NoError(t, LoadDotEnv())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Gemini.Key)
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AIS_LOG_LEVEL=debug\n"), 0644))
	t.Setenv("AIS_LOG_LEVEL", "error")

	require.NoError(t, LoadDotEnv())
	assert.Equal(t, "error", os.Getenv("AIS_LOG_LEVEL"))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "memory"
	cfg.Store.SQLitePath = "ais-clarity.db"
	cfg.Analysis.Provider = "gemini"
	cfg.Analysis.TimeoutSecs = 60
	cfg.Gemini.Key = "g-key"
	cfg.Batch.MaxConcurrentEntries = 4
	cfg.Batch.RetryAttempts = 1
	cfg.Server.Port = 8080
	cfg.OCR.Provider = "local"
	return cfg
}

func TestValidateServe_Valid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateServe_FailureRateThreshold(t *testing.T) {
	cfg := validDefaults()
	cfg.Monitoring.FailureRateThreshold = 1.5

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring.failure_rate_threshold")
}

func TestValidate_MissingProviderKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Gemini.Key = ""
	err := cfg.Validate("reconcile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.key is required")

	cfg.Analysis.Provider = "anthropic"
	err = cfg.Validate("reconcile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Analysis.Provider = "openai"
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis.provider must be gemini or anthropic")
}

func TestValidate_StoreDrivers(t *testing.T) {
	cfg := validDefaults()

	cfg.Store.Driver = "postgres"
	err := cfg.Validate("report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/ais"
	assert.NoError(t, cfg.Validate("report"))

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be one of")
}

func TestValidateMigrate_RejectsMemory(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be sqlite or postgres")

	cfg.Store.Driver = "sqlite"
	assert.NoError(t, cfg.Validate("migrate"))
}

func TestValidateReport_NoAnalysisNeeded(t *testing.T) {
	cfg := validDefaults()
	cfg.Gemini.Key = ""
	assert.NoError(t, cfg.Validate("report"))
}

func TestValidateEvidence_OCRProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.Gemini.Key = ""
	assert.NoError(t, cfg.Validate("evidence"))

	cfg.OCR.Provider = "mistral"
	err := cfg.Validate("evidence")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr.mistral_key is required")

	cfg.OCR.MistralKey = "m-key"
	assert.NoError(t, cfg.Validate("evidence"))

	cfg.OCR.Provider = "tesseract"
	err = cfg.Validate("evidence")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr.provider must be one of")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.MaxConcurrentEntries = 0
	err := cfg.Validate("reconcile")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_entries must be between 1 and 32")

	cfg.Batch.MaxConcurrentEntries = 33
	assert.Error(t, cfg.Validate("reconcile"))

	cfg.Batch.MaxConcurrentEntries = 32
	assert.NoError(t, cfg.Validate("reconcile"))
}
