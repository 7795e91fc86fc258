package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BotConfig represents the complete configuration for both trading strategies
type BotConfig struct {
	// Per-strategy configuration
	CopyTrade CopyTradeConfig `json:"copy_trade"`
	HighProb  HighProbConfig  `json:"high_prob"`

	// Exchange connection configuration
	Exchange ExchangeConfig `json:"exchange"`

	// Audit trail persistence
	Audit AuditConfig `json:"audit"`

	// Monitoring endpoints
	Monitoring MonitoringConfig `json:"monitoring"`

	// Notification configuration (optional)
	Notifications *NotificationConfig `json:"notifications,omitempty"`
}

// CopyTradeConfig holds the copy-trading strategy configuration.
// Values are immutable for the life of a running strategy instance.
type CopyTradeConfig struct {
	Enabled             bool    `json:"enabled"`
	TargetTraderAddress string  `json:"target_trader_address"`
	TotalCapital        float64 `json:"total_capital"`          // Total allocated capital in USDC
	CapitalAllocationPct float64 `json:"capital_allocation_pct"` // % of capital per trade when not proportional
	MaxTradeSize        float64 `json:"max_trade_size"`
	MinTradeSize        float64 `json:"min_trade_size"`
	MaxRiskPerTradePct  float64 `json:"max_risk_per_trade_pct"`
	ProportionalSizing  bool    `json:"proportional_sizing"`
	CopyRatio           float64 `json:"copy_ratio"` // Fraction of the target's position delta to mirror

	StopLossPct     float64 `json:"stop_loss_pct"`
	DailyLossLimit  float64 `json:"daily_loss_limit"`
	WeeklyLossLimit float64 `json:"weekly_loss_limit"`
	MaxOpenPositions int    `json:"max_open_positions"`

	PollInterval time.Duration `json:"-"`
	PollSeconds  float64       `json:"poll_interval_seconds"`
}

// HighProbConfig holds the high-probability entry strategy configuration
type HighProbConfig struct {
	Enabled bool `json:"enabled"`

	// Entry price range in probability dollars (0.00-1.00). The bot enters
	// when a side's price is inside [min, max]; prices above max are too
	// extreme to be worth entering.
	EntryThresholdMin float64 `json:"entry_threshold_min"`
	EntryThresholdMax float64 `json:"entry_threshold_max"`

	OrderType string `json:"order_type"` // MARKET or LIMIT

	DefaultPositionSize float64 `json:"default_position_size"`
	MaxPositionSize     float64 `json:"max_position_size"`

	StopLossPct      float64 `json:"stop_loss_pct"`
	TakeProfitPct    float64 `json:"take_profit_pct"`
	DailyLossLimit   float64 `json:"daily_loss_limit"`
	WeeklyLossLimit  float64 `json:"weekly_loss_limit"`
	MaxOpenPositions int     `json:"max_open_positions"`

	MinLiquidity     float64 `json:"min_liquidity"`
	MinVolume24h     float64 `json:"min_volume_24h"`
	ActiveMarketsOnly bool   `json:"active_markets_only"`
	MaxHoursToClose  float64 `json:"max_hours_to_close"` // 0 = disabled, scan all markets

	// true = bet against the extreme side, false = follow it
	MeanReversion bool `json:"mean_reversion"`

	ScanInterval time.Duration `json:"-"`
	ScanSeconds  float64       `json:"scan_interval_seconds"`
}

// ExchangeConfig holds Polymarket API connection settings
type ExchangeConfig struct {
	ClobHost  string `json:"clob_host"`
	GammaHost string `json:"gamma_host"`
	DataHost  string `json:"data_host"`

	// Credentials; when empty the gateway runs in paper-trading mode
	PrivateKey    string `json:"private_key,omitempty"`
	APIKey        string `json:"api_key,omitempty"`
	APISecret     string `json:"api_secret,omitempty"`
	APIPassphrase string `json:"api_passphrase,omitempty"`
	FunderAddress string `json:"funder_address,omitempty"`
}

// AuditConfig controls where the audit trail is persisted
type AuditConfig struct {
	// Path to the sqlite database file; empty keeps the trail in memory only
	DatabasePath string `json:"database_path"`
	ExportDir    string `json:"export_dir"`
}

// MonitoringConfig holds metrics and health endpoint settings
type MonitoringConfig struct {
	PrometheusPort int `json:"prometheus_port"`
	HealthPort     int `json:"health_port"`
}

// NotificationConfig holds notification settings
type NotificationConfig struct {
	Enabled       bool   `json:"enabled"`
	TelegramToken string `json:"telegram_token,omitempty"`
	TelegramChat  string `json:"telegram_chat,omitempty"`
}

// Load loads configuration from file, applies environment overrides,
// defaults and validation. Validation failure is fatal: the strategy
// schedules never start on a bad config.
func Load(configFile string) (*BotConfig, error) {
	// Bare names resolve into the configs/ directory
	if !strings.ContainsAny(configFile, "/\\") {
		configFile = filepath.Join("configs", configFile)
	}
	if !strings.HasSuffix(configFile, ".json") {
		configFile += ".json"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg BotConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets credentials and the target address come from the
// environment (usually a .env file) instead of the config file.
func (c *BotConfig) applyEnvOverrides() {
	if v := os.Getenv("POLYMARKET_PRIVATE_KEY"); v != "" {
		c.Exchange.PrivateKey = v
	}
	if v := os.Getenv("POLYMARKET_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("POLYMARKET_API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("POLYMARKET_API_PASSPHRASE"); v != "" {
		c.Exchange.APIPassphrase = v
	}
	if v := os.Getenv("POLYMARKET_FUNDER_ADDRESS"); v != "" {
		c.Exchange.FunderAddress = v
	}
	if v := os.Getenv("TARGET_TRADER_ADDRESS"); v != "" {
		c.CopyTrade.TargetTraderAddress = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		if c.Notifications == nil {
			c.Notifications = &NotificationConfig{Enabled: true}
		}
		c.Notifications.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" && c.Notifications != nil {
		c.Notifications.TelegramChat = v
	}
	if v := os.Getenv("PROMETHEUS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Monitoring.PrometheusPort = port
		}
	}
	if v := os.Getenv("HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Monitoring.HealthPort = port
		}
	}
}

// setDefaults sets default values for missing configuration
func (c *BotConfig) setDefaults() {
	ct := &c.CopyTrade
	if ct.TotalCapital == 0 {
		ct.TotalCapital = 1000.0
	}
	if ct.CapitalAllocationPct == 0 {
		ct.CapitalAllocationPct = 50.0
	}
	if ct.MaxTradeSize == 0 {
		ct.MaxTradeSize = 200.0
	}
	if ct.MinTradeSize == 0 {
		ct.MinTradeSize = 5.0
	}
	if ct.MaxRiskPerTradePct == 0 {
		ct.MaxRiskPerTradePct = 5.0
	}
	if ct.CopyRatio == 0 {
		ct.CopyRatio = 0.10
	}
	if ct.StopLossPct == 0 {
		ct.StopLossPct = 20.0
	}
	if ct.DailyLossLimit == 0 {
		ct.DailyLossLimit = 100.0
	}
	if ct.WeeklyLossLimit == 0 {
		ct.WeeklyLossLimit = 300.0
	}
	if ct.MaxOpenPositions == 0 {
		ct.MaxOpenPositions = 10
	}
	if ct.PollSeconds == 0 {
		ct.PollSeconds = 5.0
	}
	ct.PollInterval = time.Duration(ct.PollSeconds * float64(time.Second))

	hp := &c.HighProb
	if hp.EntryThresholdMin == 0 {
		hp.EntryThresholdMin = 0.88
	}
	if hp.EntryThresholdMax == 0 {
		hp.EntryThresholdMax = 0.91
	}
	if hp.OrderType == "" {
		hp.OrderType = "MARKET"
	}
	if hp.DefaultPositionSize == 0 {
		hp.DefaultPositionSize = 50.0
	}
	if hp.MaxPositionSize == 0 {
		hp.MaxPositionSize = 200.0
	}
	if hp.StopLossPct == 0 {
		hp.StopLossPct = 15.0
	}
	if hp.TakeProfitPct == 0 {
		hp.TakeProfitPct = 5.0
	}
	if hp.DailyLossLimit == 0 {
		hp.DailyLossLimit = 150.0
	}
	if hp.WeeklyLossLimit == 0 {
		hp.WeeklyLossLimit = 400.0
	}
	if hp.MaxOpenPositions == 0 {
		hp.MaxOpenPositions = 5
	}
	if hp.MinLiquidity == 0 {
		hp.MinLiquidity = 500.0
	}
	if hp.MinVolume24h == 0 {
		hp.MinVolume24h = 100.0
	}
	if hp.ScanSeconds == 0 {
		hp.ScanSeconds = 10.0
	}
	hp.ScanInterval = time.Duration(hp.ScanSeconds * float64(time.Second))

	if c.Exchange.ClobHost == "" {
		c.Exchange.ClobHost = "https://clob.polymarket.com"
	}
	if c.Exchange.GammaHost == "" {
		c.Exchange.GammaHost = "https://gamma-api.polymarket.com"
	}
	if c.Exchange.DataHost == "" {
		c.Exchange.DataHost = "https://data-api.polymarket.com"
	}

	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 8080
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8081
	}
}

// Validate checks the loaded configuration once at startup
func (c *BotConfig) Validate() error {
	if !c.CopyTrade.Enabled && !c.HighProb.Enabled {
		return fmt.Errorf("at least one strategy must be enabled")
	}

	if c.CopyTrade.Enabled {
		if err := c.CopyTrade.validate(); err != nil {
			return fmt.Errorf("copy_trade: %w", err)
		}
	}
	if c.HighProb.Enabled {
		if err := c.HighProb.validate(); err != nil {
			return fmt.Errorf("high_prob: %w", err)
		}
	}
	return nil
}

func (c *CopyTradeConfig) validate() error {
	if c.TargetTraderAddress == "" {
		return fmt.Errorf("target_trader_address is required")
	}
	if c.MinTradeSize <= 0 || c.MaxTradeSize <= 0 {
		return fmt.Errorf("trade size limits must be positive")
	}
	if c.MinTradeSize > c.MaxTradeSize {
		return fmt.Errorf("min_trade_size %.2f exceeds max_trade_size %.2f", c.MinTradeSize, c.MaxTradeSize)
	}
	if c.CopyRatio <= 0 {
		return fmt.Errorf("copy_ratio must be positive, got %.4f", c.CopyRatio)
	}
	if c.StopLossPct <= 0 || c.StopLossPct >= 100 {
		return fmt.Errorf("stop_loss_pct must be in (0, 100), got %.2f", c.StopLossPct)
	}
	if c.DailyLossLimit <= 0 || c.WeeklyLossLimit <= 0 {
		return fmt.Errorf("loss limits must be positive")
	}
	if c.MaxOpenPositions <= 0 {
		return fmt.Errorf("max_open_positions must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive")
	}
	return nil
}

func (c *HighProbConfig) validate() error {
	if c.EntryThresholdMin < 0 || c.EntryThresholdMin > 1 {
		return fmt.Errorf("entry_threshold_min must be in [0, 1], got %.4f", c.EntryThresholdMin)
	}
	if c.EntryThresholdMax < 0 || c.EntryThresholdMax > 1 {
		return fmt.Errorf("entry_threshold_max must be in [0, 1], got %.4f", c.EntryThresholdMax)
	}
	if c.EntryThresholdMin > c.EntryThresholdMax {
		return fmt.Errorf("entry_threshold_min %.4f exceeds entry_threshold_max %.4f", c.EntryThresholdMin, c.EntryThresholdMax)
	}
	if c.OrderType != "MARKET" && c.OrderType != "LIMIT" {
		return fmt.Errorf("order_type must be MARKET or LIMIT, got %q", c.OrderType)
	}
	if c.DefaultPositionSize <= 0 || c.MaxPositionSize <= 0 {
		return fmt.Errorf("position sizes must be positive")
	}
	if c.StopLossPct <= 0 || c.StopLossPct >= 100 {
		return fmt.Errorf("stop_loss_pct must be in (0, 100), got %.2f", c.StopLossPct)
	}
	if c.TakeProfitPct <= 0 {
		return fmt.Errorf("take_profit_pct must be positive, got %.2f", c.TakeProfitPct)
	}
	if c.DailyLossLimit <= 0 || c.WeeklyLossLimit <= 0 {
		return fmt.Errorf("loss limits must be positive")
	}
	if c.MaxOpenPositions <= 0 {
		return fmt.Errorf("max_open_positions must be positive")
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("scan_interval_seconds must be positive")
	}
	return nil
}

// LimitEntryPrice returns the limit price for LIMIT order mode: the midpoint
// of the entry threshold range, flipped for the NO side.
func (c *HighProbConfig) LimitEntryPrice(yesSide bool) float64 {
	mid := (c.EntryThresholdMin + c.EntryThresholdMax) / 2
	if yesSide {
		return mid
	}
	return 1.0 - mid
}
