// Package config loads server configuration from a YAML file and
// JOURNAL_-prefixed environment variables, with a .env file picked up
// for local development.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/tradetracker/journal-backend/pkg/types"
)

// Config is the full server configuration.
type Config struct {
	Server    types.ServerConfig  `mapstructure:"server"`
	Storage   types.StorageConfig `mapstructure:"storage"`
	Analytics AnalyticsSection    `mapstructure:"analytics"`
	Sync      types.SyncConfig    `mapstructure:"sync"`
	Log       LogConfig           `mapstructure:"log"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// AnalyticsSection is the file/env form of the analytics configuration.
// Monetary fields are strings so they parse into exact decimals.
type AnalyticsSection struct {
	RiskFreeRate   string `mapstructure:"risk_free_rate"`
	PeriodsPerYear int    `mapstructure:"periods_per_year"`
	BaselineEquity string `mapstructure:"baseline_equity"`
}

// ToAnalytics parses the section into an engine configuration.
func (s AnalyticsSection) ToAnalytics() (types.AnalyticsConfig, error) {
	cfg := types.AnalyticsConfig{PeriodsPerYear: s.PeriodsPerYear}

	var err error
	if s.RiskFreeRate != "" {
		if cfg.RiskFreeRate, err = decimal.NewFromString(s.RiskFreeRate); err != nil {
			return cfg, fmt.Errorf("invalid risk_free_rate %q: %w", s.RiskFreeRate, err)
		}
	}
	if s.BaselineEquity != "" {
		if cfg.BaselineEquity, err = decimal.NewFromString(s.BaselineEquity); err != nil {
			return cfg, fmt.Errorf("invalid baseline_equity %q: %w", s.BaselineEquity, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load reads the configuration. An empty path skips the file and uses
// defaults plus environment variables only.
func Load(path string) (*Config, error) {
	// Best effort: a missing .env is the normal production case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("JOURNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.websocket_path", "/ws")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.max_connections", 100)
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("storage.db_path", "./data/journal.db")
	v.SetDefault("storage.key_file", "")
	v.SetDefault("analytics.risk_free_rate", "0.05")
	v.SetDefault("analytics.periods_per_year", 252)
	v.SetDefault("analytics.baseline_equity", "100000")
	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.schedule", "@every 1h")
	v.SetDefault("sync.lookback_days", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if _, err := cfg.Analytics.ToAnalytics(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Passphrase resolves the credential passphrase: the key file when
// configured, the JOURNAL_CREDENTIALS_PASSPHRASE variable otherwise.
// Empty means credential storage stays disabled.
func (c *Config) Passphrase() (string, error) {
	if c.Storage.KeyFile != "" {
		raw, err := os.ReadFile(c.Storage.KeyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read key file %q: %w", c.Storage.KeyFile, err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return os.Getenv("JOURNAL_CREDENTIALS_PASSPHRASE"), nil
}
