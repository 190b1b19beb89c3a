package config

import (
	"fmt"
	"strings"
)

func (c *Config) validate() error {
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Funnel.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Advisor.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if strings.TrimSpace(m.BaseURL) == "" {
		return fmt.Errorf("market.base_url is required")
	}
	return nil
}

func (f *FunnelConfig) validate() error {
	if f.Filters.MinPrice > f.Filters.MaxPrice {
		return fmt.Errorf("funnel.filters: min_price %.0f exceeds max_price %.0f", f.Filters.MinPrice, f.Filters.MaxPrice)
	}
	if f.Filters.MinConfidence < 0 || f.Filters.MinConfidence > 1 {
		return fmt.Errorf("funnel.filters.min_confidence must be in [0,1]")
	}
	if f.Filters.MinScorePct < 0 || f.Filters.MinScorePct > 100 {
		return fmt.Errorf("funnel.filters.min_score_pct must be in [0,100]")
	}
	if f.DeepLimit > f.FastLimit {
		return fmt.Errorf("funnel.deep_limit %d exceeds fast_limit %d", f.DeepLimit, f.FastLimit)
	}
	if f.AILimit > f.DeepLimit {
		return fmt.Errorf("funnel.ai_limit %d exceeds deep_limit %d", f.AILimit, f.DeepLimit)
	}
	return nil
}

var knownModes = map[string]bool{
	"aggressive":        true,
	"normal":            true,
	"conservative":      true,
	"very_conservative": true,
}

// validate catches mode table mistakes before the risk engine ever sees
// them. The engine re-validates the assembled table at startup.
func (r *RiskConfig) validate() error {
	for name, o := range r.Modes {
		if !knownModes[name] {
			return fmt.Errorf("risk.modes: unknown mode %q", name)
		}
		if o.MaxOpenPositions < 1 {
			return fmt.Errorf("risk.modes.%s.max_open_positions must be >= 1", name)
		}
		if o.RiskPerTradeRatio <= 0 || o.RiskPerTradeRatio > 1 {
			return fmt.Errorf("risk.modes.%s.risk_per_trade_ratio must be in (0,1]", name)
		}
		if o.TakeProfitRatio <= 0 {
			return fmt.Errorf("risk.modes.%s.take_profit_ratio must be positive", name)
		}
		if o.StopLossRatio >= 0 || o.StopLossRatio <= -1 {
			return fmt.Errorf("risk.modes.%s.stop_loss_ratio must be in (-1,0)", name)
		}
	}
	return nil
}

func (a *AdvisorConfig) validate() error {
	if strings.TrimSpace(a.APIURL) == "" {
		return fmt.Errorf("advisor.api_url is required")
	}
	if strings.TrimSpace(a.Model) == "" {
		return fmt.Errorf("advisor.model is required")
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("advisor.temperature must be in [0,2]")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.Slippage < 0 || t.Slippage >= 0.1 {
		return fmt.Errorf("trading.slippage must be in [0, 0.1)")
	}
	return nil
}
