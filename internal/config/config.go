package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"marketanalysis/internal/utils"
)

// Config is the engine's full configuration, loaded from built-in defaults,
// optionally overridden by a YAML file, then by environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Cache    CacheConfig    `yaml:"cache"`
	Universe UniverseConfig `yaml:"universe"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DatabaseConfig struct {
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// AnalysisConfig holds every knob named in the external interfaces section.
type AnalysisConfig struct {
	IntervalSecs       int    `yaml:"interval_secs"`
	RequestBaseDelayMs int    `yaml:"request_base_delay_ms"`
	RequestJitterMaxMs int    `yaml:"request_jitter_max_ms"`
	FetchRetryMax      int    `yaml:"fetch_retry_max"`
	FetchBackoffBaseMs int    `yaml:"fetch_backoff_base_ms"`
	HTTPTimeoutSecs    int    `yaml:"http_timeout_secs"`
	HistoryWindowDays  int    `yaml:"history_window_days"`
	CycleCheckInterval int    `yaml:"cycle_check_interval_secs"`
	QuoteBaseURL       string `yaml:"quote_base_url"`
}

func (a AnalysisConfig) IntervalDuration() time.Duration {
	return time.Duration(a.IntervalSecs) * time.Second
}

func (a AnalysisConfig) RequestBaseDelay() time.Duration {
	return time.Duration(a.RequestBaseDelayMs) * time.Millisecond
}

func (a AnalysisConfig) RequestJitterMax() time.Duration {
	return time.Duration(a.RequestJitterMaxMs) * time.Millisecond
}

func (a AnalysisConfig) FetchBackoffBase() time.Duration {
	return time.Duration(a.FetchBackoffBaseMs) * time.Millisecond
}

func (a AnalysisConfig) HTTPTimeout() time.Duration {
	return time.Duration(a.HTTPTimeoutSecs) * time.Second
}

func (a AnalysisConfig) CycleCheckDuration() time.Duration {
	return time.Duration(a.CycleCheckInterval) * time.Second
}

type CacheConfig struct {
	TTLSecs int `yaml:"ttl_secs"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

type UniverseConfig struct {
	DefaultSymbols []string `yaml:"default_symbols"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in defaults named in the external interfaces
// section. Unlike the teacher's Load, a missing config file is not an
// error here — the engine must be runnable standalone.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "marketanalysis.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Analysis: AnalysisConfig{
			IntervalSecs:       3600,
			RequestBaseDelayMs: 4000,
			RequestJitterMaxMs: 2000,
			FetchRetryMax:      3,
			FetchBackoffBaseMs: 2000,
			HTTPTimeoutSecs:    30,
			HistoryWindowDays:  90,
			CycleCheckInterval: 60,
			QuoteBaseURL:       "https://query1.finance.yahoo.com",
		},
		Cache: CacheConfig{
			TTLSecs: 300,
		},
		Universe: UniverseConfig{
			DefaultSymbols: []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and environment
// variable overrides, then validates it.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := loadFromYAML(cfg, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from YAML: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func loadFromYAML(cfg *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	// Expand environment variables in YAML
	expanded := os.ExpandEnv(string(data))

	return yaml.Unmarshal([]byte(expanded), cfg)
}

func loadFromEnv(cfg *Config) {
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if v := os.Getenv("ANALYSIS_INTERVAL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.IntervalSecs = n
		}
	}
	if v := os.Getenv("CACHE_TTL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TTLSecs = n
		}
	}
	if v := os.Getenv("REQUEST_BASE_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.RequestBaseDelayMs = n
		}
	}
	if v := os.Getenv("REQUEST_JITTER_MAX_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.RequestJitterMaxMs = n
		}
	}
	if v := os.Getenv("FETCH_RETRY_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.FetchRetryMax = n
		}
	}
	if v := os.Getenv("DEFAULT_SYMBOLS"); v != "" {
		if symbols := utils.ParseSymbols(v); len(symbols) > 0 {
			cfg.Universe.DefaultSymbols = symbols
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func validate(cfg *Config) error {
	if cfg.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if cfg.Analysis.IntervalSecs <= 0 {
		return fmt.Errorf("analysis.interval_secs must be positive")
	}
	if cfg.Analysis.FetchRetryMax < 0 {
		return fmt.Errorf("analysis.fetch_retry_max must not be negative")
	}
	if cfg.Cache.TTLSecs <= 0 {
		return fmt.Errorf("cache.ttl_secs must be positive")
	}
	if len(cfg.Universe.DefaultSymbols) == 0 {
		return fmt.Errorf("universe.default_symbols must not be empty")
	}
	return nil
}
