package app

import (
	"fmt"
	"sort"
	"strings"

	"stockpilot/internal/config"
	"stockpilot/internal/risk"
)

// StartupSummary is printed once at boot so a glance at the log shows what
// this run is actually configured to do.
type StartupSummary struct {
	Env         string
	HTTPAddr    string
	MarketURL   string
	Funnel      config.FunnelConfig
	RiskMode    risk.ModeParams
	HysteresisK int
	Weights     map[string]float64
	InitialCash float64
	Slippage    float64
	AdvisorURL  string
	Model       string
}

func buildSummary(cfg *config.Config, riskEng *risk.Engine, weights map[string]float64) *StartupSummary {
	return &StartupSummary{
		Env:         cfg.App.Env,
		HTTPAddr:    cfg.App.HTTPAddr,
		MarketURL:   cfg.Market.BaseURL,
		Funnel:      cfg.Funnel,
		RiskMode:    riskEng.CurrentMode(),
		HysteresisK: cfg.Risk.HysteresisK,
		Weights:     weights,
		InitialCash: cfg.Trading.InitialCash,
		Slippage:    cfg.Trading.Slippage,
		AdvisorURL:  cfg.Advisor.APIURL,
		Model:       cfg.Advisor.Model,
	}
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("STARTUP SUMMARY")
	fmt.Println(strings.Repeat("=", 72))

	fmt.Println("[APP]")
	fmt.Printf("  env: %s  http: %s\n", orDash(s.Env), s.HTTPAddr)
	fmt.Printf("  market: %s\n", s.MarketURL)
	fmt.Println()

	fmt.Println("[FUNNEL]")
	fmt.Printf("  fast: every %ds, top %d by turnover\n", s.Funnel.FastIntervalSeconds, s.Funnel.FastLimit)
	fmt.Printf("  deep: every %ds, top %d by score\n", s.Funnel.DeepIntervalSeconds, s.Funnel.DeepLimit)
	fmt.Printf("  ai:   every %ds, top %d gated (score >= %.0f%%, confidence >= %.2f)\n",
		s.Funnel.AIIntervalSeconds, s.Funnel.AILimit, s.Funnel.Filters.MinScorePct, s.Funnel.Filters.MinConfidence)
	fmt.Printf("  price band: %.0f..%.0f KRW, volume >= %d\n",
		s.Funnel.Filters.MinPrice, s.Funnel.Filters.MaxPrice, s.Funnel.Filters.MinVolume)
	fmt.Println()

	fmt.Println("[SCORING]")
	if len(s.Weights) == 0 {
		fmt.Println("  weights: defaults")
	} else {
		names := make([]string, 0, len(s.Weights))
		for name := range s.Weights {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %.0f\n", name, s.Weights[name])
		}
	}
	fmt.Println()

	fmt.Println("[RISK]")
	fmt.Printf("  starting mode: %s (max_open=%d, per_trade=%.0f%%, tp=%+.0f%%, sl=%+.0f%%)\n",
		s.RiskMode.Mode, s.RiskMode.MaxOpenPositions,
		s.RiskMode.RiskPerTradeRatio*100, s.RiskMode.TakeProfitRatio*100, s.RiskMode.StopLossRatio*100)
	fmt.Printf("  hysteresis: %d consecutive update(s) to switch\n", s.HysteresisK)
	fmt.Println()

	fmt.Println("[TRADING]")
	fmt.Printf("  initial cash: %.0f KRW (paper, slippage %.2f%%)\n", s.InitialCash, s.Slippage*100)
	fmt.Printf("  advisor: %s (%s)\n", s.AdvisorURL, s.Model)
	fmt.Println(strings.Repeat("=", 72))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
