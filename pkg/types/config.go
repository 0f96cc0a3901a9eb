// Package types provides configuration types for the trade journal backend.
package types

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `json:"host" mapstructure:"host"`
	Port           int           `json:"port" mapstructure:"port"`
	WebSocketPath  string        `json:"websocketPath" mapstructure:"websocket_path"`
	ReadTimeout    time.Duration `json:"readTimeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `json:"writeTimeout" mapstructure:"write_timeout"`
	MaxConnections int           `json:"maxConnections" mapstructure:"max_connections"`
	EnableMetrics  bool          `json:"enableMetrics" mapstructure:"enable_metrics"`
	MetricsPort    int           `json:"metricsPort" mapstructure:"metrics_port"`
}

// StorageConfig represents database configuration
type StorageConfig struct {
	DBPath  string `json:"dbPath" mapstructure:"db_path"`
	KeyFile string `json:"keyFile" mapstructure:"key_file"`
}

// AnalyticsConfig is the explicit configuration surface of the metrics
// engine. PeriodsPerYear has no default: the caller must supply a factor
// consistent with the bucket granularity used to build returns (daily 252,
// weekly 52, monthly 12).
type AnalyticsConfig struct {
	RiskFreeRate   decimal.Decimal `json:"riskFreeRate" mapstructure:"-"`
	PeriodsPerYear int             `json:"periodsPerYear" mapstructure:"periods_per_year"`
	BaselineEquity decimal.Decimal `json:"baselineEquity" mapstructure:"-"`
}

// ErrMissingPeriodsPerYear is returned when the annualization factor is absent.
var ErrMissingPeriodsPerYear = errors.New("analytics: periods per year must be positive")

// Validate checks the analytics configuration.
func (c AnalyticsConfig) Validate() error {
	if c.PeriodsPerYear <= 0 {
		return ErrMissingPeriodsPerYear
	}
	return nil
}

// SyncConfig represents broker import scheduling configuration
type SyncConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Schedule string `json:"schedule" mapstructure:"schedule"`
	Lookback int    `json:"lookbackDays" mapstructure:"lookback_days"`
}
