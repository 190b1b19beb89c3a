package risk

import "fmt"

// Mode is one of the four discrete risk postures.
type Mode string

const (
	ModeAggressive       Mode = "aggressive"
	ModeNormal           Mode = "normal"
	ModeConservative     Mode = "conservative"
	ModeVeryConservative Mode = "very_conservative"
)

// ModeParams are the sizing and exit parameters one mode carries. The struct
// is copied by value into a position at entry and never re-derived.
type ModeParams struct {
	Mode              Mode    `json:"mode"`
	MaxOpenPositions  int     `json:"max_open_positions"`
	RiskPerTradeRatio float64 `json:"risk_per_trade_ratio"`
	TakeProfitRatio   float64 `json:"take_profit_ratio"`
	StopLossRatio     float64 `json:"stop_loss_ratio"` // negative fraction
}

// Table maps every mode to its parameters.
type Table map[Mode]ModeParams

// DefaultTable is the stock parameter set; config may override it.
func DefaultTable() Table {
	return Table{
		ModeAggressive:       {Mode: ModeAggressive, MaxOpenPositions: 5, RiskPerTradeRatio: 0.30, TakeProfitRatio: 0.15, StopLossRatio: -0.07},
		ModeNormal:           {Mode: ModeNormal, MaxOpenPositions: 3, RiskPerTradeRatio: 0.20, TakeProfitRatio: 0.10, StopLossRatio: -0.05},
		ModeConservative:     {Mode: ModeConservative, MaxOpenPositions: 2, RiskPerTradeRatio: 0.10, TakeProfitRatio: 0.07, StopLossRatio: -0.04},
		ModeVeryConservative: {Mode: ModeVeryConservative, MaxOpenPositions: 1, RiskPerTradeRatio: 0.05, TakeProfitRatio: 0.05, StopLossRatio: -0.03},
	}
}

// Validate rejects tables that would misprice exits or size nonsense
// positions. Called once at startup; failures are fatal.
func (t Table) Validate() error {
	for _, mode := range []Mode{ModeAggressive, ModeNormal, ModeConservative, ModeVeryConservative} {
		p, found := t[mode]
		if !found {
			return fmt.Errorf("risk: mode table missing %s", mode)
		}
		if p.MaxOpenPositions < 1 {
			return fmt.Errorf("risk: %s max_open_positions must be >= 1", mode)
		}
		if p.RiskPerTradeRatio <= 0 || p.RiskPerTradeRatio > 1 {
			return fmt.Errorf("risk: %s risk_per_trade_ratio must be in (0,1]", mode)
		}
		if p.TakeProfitRatio <= 0 {
			return fmt.Errorf("risk: %s take_profit_ratio must be positive", mode)
		}
		if p.StopLossRatio >= 0 || p.StopLossRatio <= -1 {
			return fmt.Errorf("risk: %s stop_loss_ratio must be in (-1,0)", mode)
		}
	}
	return nil
}

// ModeForReturn is the pure step function mapping trailing portfolio return
// to a mode. Boundaries: r=+0.05 is Aggressive, r=-0.05 is Conservative,
// r=-0.10 is already VeryConservative.
func ModeForReturn(r float64) Mode {
	switch {
	case r >= 0.05:
		return ModeAggressive
	case r > -0.05:
		return ModeNormal
	case r > -0.10:
		return ModeConservative
	default:
		return ModeVeryConservative
	}
}
