package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.yaml"), []byte(body), 0o600))
	t.Setenv(configDirENV, dir)
	t.Setenv(configFilePathENV, "test.yaml")
}

func TestNewConfigDefaults(t *testing.T) {
	writeConfig(t, "telegram:\n  token: abc\n")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Telegram.Token)
	assert.Equal(t, time.Minute, cfg.Telegram.ConfirmTimeout)
	assert.Equal(t, 10, cfg.Alerts.MaxLevelsPerCall)
	assert.Equal(t, 0.2, cfg.Alerts.LowerBound)
	assert.Equal(t, 5.0, cfg.Alerts.UpperBound)
	assert.Equal(t, 10000.0, cfg.Paper.StartingBalance)
	assert.Equal(t, 50, cfg.Paper.MaxOpenOrders)
	assert.Equal(t, 168*time.Hour, cfg.Paper.ResetCooldown)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
}

func TestNewConfigEnvOverride(t *testing.T) {
	writeConfig(t, "telegram:\n  token: from-file\nalerts:\n  max_guest: 3\n")
	t.Setenv("TELEGRAM_TOKEN", "from-env")
	t.Setenv("DATABASE_DSN", "postgres://localhost/alpha")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, "postgres://localhost/alpha", cfg.DB)
	assert.Equal(t, 3, cfg.Alerts.MaxGuest)
}

func TestNewConfigLegacyBounds(t *testing.T) {
	writeConfig(t, "alerts:\n  legacy: true\n")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Alerts.LowerBound)
	assert.Equal(t, 2.0, cfg.Alerts.UpperBound)
}

func TestNewConfigMissingFile(t *testing.T) {
	t.Setenv(configDirENV, t.TempDir())
	t.Setenv(configFilePathENV, "absent.yaml")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "alpha_bot", cfg.Service.Name)
}

func TestValidate(t *testing.T) {
	writeConfig(t, "alerts:\n  lower_bound: 3\n  upper_bound: 2\n")
	_, err := NewConfig()
	assert.Error(t, err)

	writeConfig(t, "alerts:\n  duplicate_tolerance: 1.5\n")
	_, err = NewConfig()
	assert.Error(t, err)

	writeConfig(t, "paper:\n  starting_balance: 0\n")
	_, err = NewConfig()
	assert.Error(t, err)
}
