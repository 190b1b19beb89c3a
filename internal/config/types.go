package config

import "time"

// Config is the full application configuration. Files are YAML; the toml tag
// name is what the mapstructure decoder matches on.
type Config struct {
	Include []string      `toml:"include"`
	App     AppConfig     `toml:"app"`
	Market  MarketConfig  `toml:"market"`
	Funnel  FunnelConfig  `toml:"funnel"`
	Scoring ScoringConfig `toml:"scoring"`
	Risk    RiskConfig    `toml:"risk"`
	Advisor AdvisorConfig `toml:"advisor"`
	Trading TradingConfig `toml:"trading"`
}

type AppConfig struct {
	Env        string `toml:"env"`
	LogLevel   string `toml:"log_level"`
	LogPath    string `toml:"log_path"`
	AIDumpPath string `toml:"ai_dump_path"`
	HTTPAddr   string `toml:"http_addr"`
}

// MarketConfig points at the brokerage market-data REST gateway.
type MarketConfig struct {
	BaseURL        string  `toml:"base_url"`
	AppKey         string  `toml:"app_key"`
	AppSecret      string  `toml:"app_secret"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RatePerSecond  float64 `toml:"rate_per_second"`
	Burst          int     `toml:"burst"`
}

// FunnelConfig fixes the three stage cadences and limits. The filters
// subsection is the only part that hot-reloads.
type FunnelConfig struct {
	FastIntervalSeconds int `toml:"fast_interval_seconds"`
	DeepIntervalSeconds int `toml:"deep_interval_seconds"`
	AIIntervalSeconds   int `toml:"ai_interval_seconds"`

	FastLimit int `toml:"fast_limit"`
	DeepLimit int `toml:"deep_limit"`
	AILimit   int `toml:"ai_limit"`

	HistoryBars      int `toml:"history_bars"`
	DeepConcurrency  int `toml:"deep_concurrency"`
	AIConcurrency    int `toml:"ai_concurrency"`
	AITimeoutSeconds int `toml:"ai_timeout_seconds"`

	Filters FilterConfig `toml:"filters"`
}

type FilterConfig struct {
	MinPrice      float64 `toml:"min_price"`
	MaxPrice      float64 `toml:"max_price"`
	MinVolume     int64   `toml:"min_volume"`
	MinScorePct   float64 `toml:"min_score_pct"`
	MinConfidence float64 `toml:"min_confidence"`
}

type ScoringConfig struct {
	// WeightsPath is an optional YAML weight profile; a zero weight there
	// disables the criterion.
	WeightsPath string `toml:"weights_path"`
}

// RiskConfig tunes the mode state machine. Modes overrides individual
// parameter sets by mode name; omitted modes keep their defaults.
type RiskConfig struct {
	HysteresisK int                     `toml:"hysteresis_k"`
	Modes       map[string]ModeOverride `toml:"modes"`
}

type ModeOverride struct {
	MaxOpenPositions  int     `toml:"max_open_positions"`
	RiskPerTradeRatio float64 `toml:"risk_per_trade_ratio"`
	TakeProfitRatio   float64 `toml:"take_profit_ratio"`
	StopLossRatio     float64 `toml:"stop_loss_ratio"`
}

type AdvisorConfig struct {
	APIURL              string  `toml:"api_url"`
	APIKey              string  `toml:"api_key"`
	Model               string  `toml:"model"`
	Temperature         float64 `toml:"temperature"`
	TimeoutSeconds      int     `toml:"timeout_seconds"`
	MaxRetries          int     `toml:"max_retries"`
	BreakerThreshold    int     `toml:"breaker_threshold"`
	BreakerResetSeconds int     `toml:"breaker_reset_seconds"`
	DumpPayloads        bool    `toml:"dump_payloads"`
}

type TradingConfig struct {
	InitialCash         float64 `toml:"initial_cash"`
	PortfolioDBPath     string  `toml:"portfolio_db_path"`
	DecisionLogPath     string  `toml:"decision_log_path"`
	Slippage            float64 `toml:"slippage"`
	ExitCheckSeconds    int     `toml:"exit_check_seconds"`
	EquityUpdateSeconds int     `toml:"equity_update_seconds"`
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (f FunnelConfig) FastInterval() time.Duration { return seconds(f.FastIntervalSeconds) }
func (f FunnelConfig) DeepInterval() time.Duration { return seconds(f.DeepIntervalSeconds) }
func (f FunnelConfig) AIInterval() time.Duration   { return seconds(f.AIIntervalSeconds) }
func (f FunnelConfig) AITimeout() time.Duration    { return seconds(f.AITimeoutSeconds) }

func (m MarketConfig) Timeout() time.Duration  { return seconds(m.TimeoutSeconds) }
func (a AdvisorConfig) Timeout() time.Duration { return seconds(a.TimeoutSeconds) }
func (a AdvisorConfig) BreakerReset() time.Duration {
	return seconds(a.BreakerResetSeconds)
}

func (t TradingConfig) ExitCheckInterval() time.Duration    { return seconds(t.ExitCheckSeconds) }
func (t TradingConfig) EquityUpdateInterval() time.Duration { return seconds(t.EquityUpdateSeconds) }
