package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"copy_trade": {"enabled": true, "target_trader_address": "0xabc"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.10, cfg.CopyTrade.CopyRatio)
	assert.Equal(t, 200.0, cfg.CopyTrade.MaxTradeSize)
	assert.Equal(t, 5*time.Second, cfg.CopyTrade.PollInterval)
	assert.Equal(t, 0.88, cfg.HighProb.EntryThresholdMin)
	assert.Equal(t, 0.91, cfg.HighProb.EntryThresholdMax)
	assert.Equal(t, "MARKET", cfg.HighProb.OrderType)
	assert.Equal(t, "https://clob.polymarket.com", cfg.Exchange.ClobHost)
	assert.Equal(t, 8080, cfg.Monitoring.PrometheusPort)
}

func TestLoad_RequiresAtLeastOneStrategy(t *testing.T) {
	path := writeConfig(t, `{}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one strategy")
}

func TestLoad_CopyTradeRequiresTargetAddress(t *testing.T) {
	path := writeConfig(t, `{"copy_trade": {"enabled": true}}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target_trader_address")
}

func TestLoad_EnvOverridesTargetAddress(t *testing.T) {
	t.Setenv("TARGET_TRADER_ADDRESS", "0xfromenv")

	path := writeConfig(t, `{"copy_trade": {"enabled": true}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0xfromenv", cfg.CopyTrade.TargetTraderAddress)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate_ThresholdRangeChecks(t *testing.T) {
	path := writeConfig(t, `{
		"high_prob": {"enabled": true, "entry_threshold_min": 0.95, "entry_threshold_max": 0.90}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry_threshold_min")
}

func TestValidate_ThresholdOutOfBounds(t *testing.T) {
	path := writeConfig(t, `{
		"high_prob": {"enabled": true, "entry_threshold_max": 1.5}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry_threshold_max")
}

func TestValidate_InvalidOrderType(t *testing.T) {
	path := writeConfig(t, `{
		"high_prob": {"enabled": true, "order_type": "STOP"}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order_type")
}

func TestValidate_MinAboveMaxTradeSize(t *testing.T) {
	path := writeConfig(t, `{
		"copy_trade": {"enabled": true, "target_trader_address": "0xabc",
			"min_trade_size": 100, "max_trade_size": 50}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_trade_size")
}

func TestHighProbConfig_LimitEntryPrice(t *testing.T) {
	cfg := HighProbConfig{EntryThresholdMin: 0.88, EntryThresholdMax: 0.91}

	assert.InDelta(t, 0.895, cfg.LimitEntryPrice(true), 0.0001)
	assert.InDelta(t, 0.105, cfg.LimitEntryPrice(false), 0.0001)
}
