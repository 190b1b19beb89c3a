package scoring

import (
	talib "github.com/markcheno/go-talib"

	"stockpilot/internal/types"
)

const rsiPeriod = 14

// DefaultCriteria returns the standard criteria set. Weights can be overridden
// via a profile file; a zero override disables the criterion entirely.
func DefaultCriteria(overrides map[string]float64) []Criterion {
	base := []Criterion{
		{Name: "liquidity", Weight: 20, Evaluate: evalLiquidity},
		{Name: "momentum", Weight: 15, Evaluate: evalMomentum},
		{Name: "volume_surge", Weight: 15, Evaluate: evalVolumeSurge},
		{Name: "orderbook_imbalance", Weight: 15, Evaluate: evalOrderbookImbalance},
		{Name: "institutional_flow", Weight: 20, Evaluate: evalInstitutionalFlow},
		{Name: "rsi", Weight: 15, Evaluate: evalRSI},
	}
	if len(overrides) == 0 {
		return base
	}
	out := make([]Criterion, 0, len(base))
	for _, c := range base {
		if w, found := overrides[c.Name]; found {
			c.Weight = w
		}
		out = append(out, c)
	}
	return out
}

// evalLiquidity rewards accumulated turnover. Thresholds are in KRW.
func evalLiquidity(m types.Metrics) (float64, bool) {
	if m.Turnover <= 0 {
		return 0, false
	}
	switch {
	case m.Turnover >= 50e9:
		return 1, true
	case m.Turnover >= 10e9:
		return 0.8, true
	case m.Turnover >= 5e9:
		return 0.6, true
	case m.Turnover >= 1e9:
		return 0.4, true
	default:
		return 0.2, true
	}
}

// evalMomentum prefers a steady advance over a spike. Limit-up style moves
// score lower than the 1-7% band.
func evalMomentum(m types.Metrics) (float64, bool) {
	if m.Price <= 0 {
		return 0, false
	}
	pct := m.ChangePct
	switch {
	case pct >= 1 && pct <= 7:
		return 1, true
	case pct > 7 && pct <= 15:
		return 0.6, true
	case pct > 15:
		return 0.3, true
	case pct > 0:
		return 0.5, true
	default:
		return 0, true
	}
}

func evalVolumeSurge(m types.Metrics) (float64, bool) {
	if m.AvgVolume <= 0 || m.Volume < 0 {
		return 0, false
	}
	ratio := float64(m.Volume) / float64(m.AvgVolume)
	switch {
	case ratio >= 3:
		return 1, true
	case ratio >= 2:
		return 0.8, true
	case ratio >= 1.5:
		return 0.6, true
	case ratio >= 1:
		return 0.4, true
	default:
		return 0.1, true
	}
}

func evalOrderbookImbalance(m types.Metrics) (float64, bool) {
	if !m.DepthKnown {
		return 0, false
	}
	total := m.BidDepth + m.AskDepth
	if total <= 0 {
		return 0, false
	}
	bidShare := m.BidDepth / total
	switch {
	case bidShare >= 0.65:
		return 1, true
	case bidShare >= 0.55:
		return 0.7, true
	case bidShare >= 0.45:
		return 0.4, true
	default:
		return 0.1, true
	}
}

func evalInstitutionalFlow(m types.Metrics) (float64, bool) {
	if !m.FlowKnown {
		return 0, false
	}
	if m.NetInstitutionalBuy <= 0 {
		return 0, true
	}
	if m.Volume <= 0 {
		return 0.5, true
	}
	share := m.NetInstitutionalBuy / float64(m.Volume)
	switch {
	case share >= 0.10:
		return 1, true
	case share >= 0.05:
		return 0.8, true
	case share >= 0.01:
		return 0.5, true
	default:
		return 0.3, true
	}
}

// evalRSI uses the daily close history collected by the deep scan. The sweet
// spot is a confirmed uptrend that is not yet overbought.
func evalRSI(m types.Metrics) (float64, bool) {
	if len(m.Closes) < rsiPeriod+1 {
		return 0, false
	}
	series := talib.Rsi(m.Closes, rsiPeriod)
	rsi := series[len(series)-1]
	switch {
	case rsi >= 50 && rsi <= 70:
		return 1, true
	case rsi > 70 && rsi <= 80:
		return 0.5, true
	case rsi > 80:
		return 0.1, true
	case rsi >= 40:
		return 0.6, true
	default:
		return 0.2, true
	}
}
