package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradetracker/journal-backend/pkg/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/ws", cfg.Server.WebSocketPath)
	assert.Equal(t, "./data/journal.db", cfg.Storage.DBPath)
	assert.Equal(t, 252, cfg.Analytics.PeriodsPerYear)
	assert.False(t, cfg.Sync.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	const yaml = `
server:
  port: 9000
storage:
  db_path: /tmp/custom.db
analytics:
  risk_free_rate: "0.04"
  periods_per_year: 52
  baseline_equity: "50000"
sync:
  enabled: true
  schedule: "@every 30m"
  lookback_days: 7
log:
  level: debug
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/tmp/custom.db", cfg.Storage.DBPath)
	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, 7, cfg.Sync.Lookback)
	assert.Equal(t, "debug", cfg.Log.Level)

	analytics, err := cfg.Analytics.ToAnalytics()
	require.NoError(t, err)
	assert.Equal(t, 52, analytics.PeriodsPerYear)
	assert.True(t, analytics.RiskFreeRate.Equal(decimal.RequireFromString("0.04")))
	assert.True(t, analytics.BaselineEquity.Equal(decimal.RequireFromString("50000")))
}

func TestLoadRejectsBadAnalytics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	const yaml = `
analytics:
  risk_free_rate: "not-a-number"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAnalyticsSectionRequiresPeriods(t *testing.T) {
	s := AnalyticsSection{RiskFreeRate: "0.05", BaselineEquity: "1000"}
	_, err := s.ToAnalytics()
	assert.ErrorIs(t, err, types.ErrMissingPeriodsPerYear)
}

func TestPassphraseFromKeyFile(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "journal.key")
	require.NoError(t, os.WriteFile(keyFile, []byte("s3cret\n"), 0600))

	cfg := &Config{Storage: types.StorageConfig{KeyFile: keyFile}}
	pass, err := cfg.Passphrase()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pass)

	cfg.Storage.KeyFile = filepath.Join(dir, "missing.key")
	_, err = cfg.Passphrase()
	assert.Error(t, err)
}
