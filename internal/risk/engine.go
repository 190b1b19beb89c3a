package risk

import (
	"sync"

	"github.com/shopspring/decimal"

	"stockpilot/internal/logger"
)

// Engine tracks the current risk mode from trailing portfolio return.
// Mode changes apply to new sizing and exit computations only; positions
// opened earlier keep the snapshot frozen at their entry.
type Engine struct {
	mu    sync.RWMutex
	table Table
	mode  Mode

	// Hysteresis: a boundary crossing must hold for hysteresisK consecutive
	// equity updates before the mode actually switches. K<=1 switches
	// immediately, matching the raw threshold behavior.
	hysteresisK  int
	pendingMode  Mode
	pendingCount int
}

func NewEngine(table Table, hysteresisK int) (*Engine, error) {
	if table == nil {
		table = DefaultTable()
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if hysteresisK < 1 {
		hysteresisK = 1
	}
	return &Engine{
		table:       table,
		mode:        ModeNormal,
		hysteresisK: hysteresisK,
	}, nil
}

// CurrentMode returns one coherent copy of the active mode parameters.
func (e *Engine) CurrentMode() ModeParams {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.table[e.mode]
}

// OnEquityUpdate recomputes the mode from the trailing return synchronously.
func (e *Engine) OnEquityUpdate(equity, baselineEquity float64) {
	if baselineEquity <= 0 {
		logger.Warnf("risk: ignoring equity update with baseline=%v", baselineEquity)
		return
	}
	r := (equity - baselineEquity) / baselineEquity
	target := ModeForReturn(r)

	e.mu.Lock()
	defer e.mu.Unlock()
	if target == e.mode {
		e.pendingMode = ""
		e.pendingCount = 0
		return
	}
	if target != e.pendingMode {
		e.pendingMode = target
		e.pendingCount = 0
	}
	e.pendingCount++
	if e.pendingCount < e.hysteresisK {
		return
	}
	logger.Infof("risk: mode %s -> %s (trailing return %.4f)", e.mode, target, r)
	e.mode = target
	e.pendingMode = ""
	e.pendingCount = 0
}

// SizePosition returns floor(cash * risk_per_trade_ratio / price) under the
// mode in effect at call time.
func (e *Engine) SizePosition(stockPrice, availableCash float64) int64 {
	if stockPrice <= 0 || availableCash <= 0 {
		return 0
	}
	params := e.CurrentMode()
	qty := decimal.NewFromFloat(availableCash).
		Mul(decimal.NewFromFloat(params.RiskPerTradeRatio)).
		Div(decimal.NewFromFloat(stockPrice))
	return qty.Floor().IntPart()
}

// ExitThresholds computes stop-loss and take-profit prices for an entry and
// returns the mode snapshot they were derived from, all under a single
// consistent read. The caller freezes the snapshot into the new position.
func (e *Engine) ExitThresholds(entryPrice float64) (params ModeParams, stopLoss, takeProfit float64) {
	params = e.CurrentMode()
	stopLoss, takeProfit = ThresholdsFor(params, entryPrice)
	return params, stopLoss, takeProfit
}

// ThresholdsFor derives exit prices from an explicit parameter snapshot.
func ThresholdsFor(params ModeParams, entryPrice float64) (stopLoss, takeProfit float64) {
	entry := decimal.NewFromFloat(entryPrice)
	one := decimal.NewFromInt(1)
	stopLoss = entry.Mul(one.Add(decimal.NewFromFloat(params.StopLossRatio))).InexactFloat64()
	takeProfit = entry.Mul(one.Add(decimal.NewFromFloat(params.TakeProfitRatio))).InexactFloat64()
	return stopLoss, takeProfit
}
