package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Seed       SeedConfig       `yaml:"seed" mapstructure:"seed"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend. Driver is one of
// "memory", "sqlite" or "postgres".
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// AnthropicConfig holds Claude API credentials and model selection.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	CacheTTL  string `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// GeminiConfig holds Gemini API credentials and model selection.
type GeminiConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int32  `yaml:"max_tokens" mapstructure:"max_tokens"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
}

// AnalysisConfig selects the analysis provider and guards calls to it.
type AnalysisConfig struct {
	Provider                string `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs             int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerMinute       int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	CircuitFailureThreshold int    `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int    `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// BatchConfig configures "reconcile all pending" runs.
type BatchConfig struct {
	MaxConcurrentEntries int `yaml:"max_concurrent_entries" mapstructure:"max_concurrent_entries"`
	RetryAttempts        int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// SeedConfig points at the fixture used to populate an empty ledger.
// An empty Path uses the built-in demo fixture.
type SeedConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`
	OnEmpty bool   `yaml:"on_empty" mapstructure:"on_empty"`
}

// MonitoringConfig configures background alerting. Alerts are only
// checked when WebhookURL is set.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
}

// OCRConfig selects how text is extracted from uploaded evidence.
// Provider is one of "local" (pdftotext), "mistral" or "none".
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_key" mapstructure:"mistral_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LoadDotEnv loads variables from a .env file in the working directory
// without overriding variables already set. A missing file is not an error.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return eris.Wrap(err, "config: load .env")
	}
	return nil
}

// Load reads configuration from config.yaml (optional) and AIS_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so AutomaticEnv can override it.
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "ais-clarity.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.cache_ttl", "1h")
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-2.5-pro")
	v.SetDefault("gemini.max_tokens", 1024)
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("analysis.provider", "gemini")
	v.SetDefault("analysis.timeout_secs", 60)
	v.SetDefault("analysis.requests_per_minute", 30)
	v.SetDefault("analysis.circuit_failure_threshold", 5)
	v.SetDefault("analysis.circuit_reset_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent_entries", 4)
	v.SetDefault("batch.retry_attempts", 1)
	v.SetDefault("seed.path", "")
	v.SetDefault("seed.on_empty", true)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.cost_threshold_usd", 0)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "")
	v.SetDefault("ocr.mistral_key", "")
	v.SetDefault("ocr.mistral_model", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. Mode is one of "serve",
// "reconcile", "migrate", "report" or "evidence".
func (c *Config) Validate(mode string) error {
	var errs []string

	needsStore := false
	needsAnalysis := false
	switch mode {
	case "serve":
		needsStore = true
		needsAnalysis = true
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if r := c.Monitoring.FailureRateThreshold; r < 0 || r > 1 {
			errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
		}
	case "reconcile":
		needsStore = true
		needsAnalysis = true
		if c.Batch.MaxConcurrentEntries < 1 || c.Batch.MaxConcurrentEntries > 32 {
			errs = append(errs, "batch.max_concurrent_entries must be between 1 and 32")
		}
		if c.Batch.RetryAttempts < 1 {
			errs = append(errs, "batch.retry_attempts must be >= 1")
		}
	case "migrate":
		needsStore = true
		if c.Store.Driver == "memory" {
			errs = append(errs, "store.driver must be sqlite or postgres to migrate")
		}
	case "report":
		needsStore = true
	case "evidence":
		needsStore = true
		switch c.OCR.Provider {
		case "local", "none":
		case "mistral":
			if c.OCR.MistralKey == "" {
				errs = append(errs, "ocr.mistral_key is required")
			}
		default:
			errs = append(errs, "ocr.provider must be one of local, mistral, none")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if needsStore {
		switch c.Store.Driver {
		case "memory":
		case "sqlite":
			if c.Store.SQLitePath == "" {
				errs = append(errs, "store.sqlite_path is required")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
		default:
			errs = append(errs, "store.driver must be one of memory, sqlite, postgres")
		}
	}

	if needsAnalysis {
		switch c.Analysis.Provider {
		case "gemini":
			if c.Gemini.Key == "" {
				errs = append(errs, "gemini.key is required")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required")
			}
		default:
			errs = append(errs, "analysis.provider must be gemini or anthropic")
		}
		if c.Analysis.TimeoutSecs <= 0 {
			errs = append(errs, "analysis.timeout_secs must be > 0")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
