package decision

import (
	"context"
	"sync"
	"time"

	"stockpilot/internal/logger"
	"stockpilot/internal/portfolio"
	"stockpilot/internal/risk"
	"stockpilot/internal/types"
)

// IntentType distinguishes the two order directions.
type IntentType string

const (
	IntentBuy  IntentType = "buy"
	IntentSell IntentType = "sell"
)

// Intent is one order decision handed to the executor.
type Intent struct {
	ID        string     `json:"id"`
	Type      IntentType `json:"type"`
	StockCode string     `json:"stock_code"`
	Quantity  int64      `json:"quantity"`
	RefPrice  float64    `json:"ref_price"`
	CycleID   string     `json:"cycle_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Recorder persists intents and their outcomes for later inspection.
type Recorder interface {
	RecordIntent(intent Intent)
	RecordOutcome(intentID, status string, fillPrice float64)
}

// pendingOrder is an intent awaiting confirmation. For buys, entryMode holds
// the risk parameters captured at submit time; the fill freezes them into the
// position.
type pendingOrder struct {
	intent    Intent
	entryMode risk.ModeParams
}

// Coordinator turns final funnel snapshots and price marks into at-most-once
// order intents. One buy per (stock_code, cycle_id); one sell per breach,
// latched by the position's PendingExit status until the order resolves.
type Coordinator struct {
	riskEng *risk.Engine
	store   *portfolio.Store
	exec    OrderExecutor
	rec     Recorder

	mu      sync.Mutex
	ctx     context.Context
	cycleID string
	emitted map[string]struct{}
	pending map[string]pendingOrder
}

func NewCoordinator(riskEng *risk.Engine, store *portfolio.Store, exec OrderExecutor, rec Recorder) *Coordinator {
	return &Coordinator{
		riskEng: riskEng,
		store:   store,
		exec:    exec,
		rec:     rec,
		emitted: make(map[string]struct{}),
		pending: make(map[string]pendingOrder),
	}
}

// BindContext ties order submissions to the given lifecycle context so
// in-flight submits are bounded at shutdown. Without it submissions run
// against context.Background().
func (c *Coordinator) BindContext(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
}

func (c *Coordinator) ctxLocked() context.Context {
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

func (c *Coordinator) submitCtx() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctxLocked()
}

// OnFinalSnapshot is the funnel's final-stage listener. It emits buy intents
// for new candidates while the mode's position cap allows, deduplicated per
// (stock_code, cycle_id). A failed submission still consumes the pair: the
// guarantee is at-most-once, never retry-within-cycle.
func (c *Coordinator) OnFinalSnapshot(snap types.StageSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if snap.CycleID != c.cycleID {
		c.cycleID = snap.CycleID
		c.emitted = make(map[string]struct{})
	}
	params := c.riskEng.CurrentMode()

	for _, cand := range snap.Candidates {
		if _, dup := c.emitted[cand.StockCode]; dup {
			continue
		}
		if _, held := c.store.Position(cand.StockCode); held {
			continue
		}
		if c.hasPendingLocked(cand.StockCode) {
			continue
		}
		if c.store.OpenCount()+c.pendingBuyCountLocked() >= params.MaxOpenPositions {
			logger.Debugf("decision: position cap %d reached, skipping rest of cycle %s", params.MaxOpenPositions, snap.CycleID)
			return
		}
		price := cand.Metrics.Price
		if price <= 0 {
			logger.Warnf("decision: candidate %s has no usable price, skipped", cand.StockCode)
			continue
		}
		qty := c.riskEng.SizePosition(price, c.store.AvailableCash()-c.reservedCashLocked())
		if qty <= 0 {
			logger.Debugf("decision: %s sized to zero at price %.0f, skipped", cand.StockCode, price)
			continue
		}

		c.emitted[cand.StockCode] = struct{}{}
		id, err := c.exec.SubmitBuy(c.ctxLocked(), cand.StockCode, qty, price)
		if err != nil {
			logger.Warnf("decision: buy submit failed for %s: %v", cand.StockCode, err)
			continue
		}
		intent := Intent{
			ID:        id,
			Type:      IntentBuy,
			StockCode: cand.StockCode,
			Quantity:  qty,
			RefPrice:  price,
			CycleID:   snap.CycleID,
			CreatedAt: time.Now(),
		}
		c.pending[id] = pendingOrder{intent: intent, entryMode: params}
		if c.rec != nil {
			c.rec.RecordIntent(intent)
		}
		logger.Infof("decision: buy intent %s %s qty=%d ref=%.0f mode=%s cycle=%s",
			id, cand.StockCode, qty, price, params.Mode, snap.CycleID)
	}
}

// EvaluateExits checks every open position against its frozen exit prices.
// A breach latches the position to PendingExit and submits exactly one sell;
// later marks for the same breach are no-ops while the latch holds.
func (c *Coordinator) EvaluateExits(marks map[string]float64) {
	ctx := c.submitCtx()
	for code, pos := range c.store.Positions() {
		if pos.Status != portfolio.StatusOpen {
			continue
		}
		price, known := marks[code]
		if price <= 0 || !known {
			continue
		}
		if price > pos.StopLossPrice && price < pos.TakeProfitPrice {
			continue
		}
		latched, ok := c.store.MarkPendingExit(code)
		if !ok {
			continue
		}
		id, err := c.exec.SubmitSell(ctx, code, latched.Quantity, price)
		if err != nil {
			logger.Warnf("decision: sell submit failed for %s, reverting to open: %v", code, err)
			c.store.RevertPending(code)
			continue
		}
		intent := Intent{
			ID:        id,
			Type:      IntentSell,
			StockCode: code,
			Quantity:  latched.Quantity,
			RefPrice:  price,
			CreatedAt: time.Now(),
		}
		c.mu.Lock()
		c.pending[id] = pendingOrder{intent: intent}
		c.mu.Unlock()
		if c.rec != nil {
			c.rec.RecordIntent(intent)
		}
		logger.Infof("decision: sell intent %s %s qty=%d mark=%.0f stop=%.0f target=%.0f",
			id, code, latched.Quantity, price, pos.StopLossPrice, pos.TakeProfitPrice)
	}
}

// OnOrderFilled resolves a pending intent. A buy fill opens the position with
// stop and target derived from the risk parameters captured at submit time,
// applied to the actual fill price. A sell fill closes the position.
func (c *Coordinator) OnOrderFilled(intentID string, fillPrice float64) {
	po, ok := c.takePending(intentID)
	if !ok {
		logger.Warnf("decision: fill for unknown intent %s ignored", intentID)
		return
	}
	switch po.intent.Type {
	case IntentBuy:
		stop, target := risk.ThresholdsFor(po.entryMode, fillPrice)
		pos := portfolio.Position{
			StockCode:       po.intent.StockCode,
			Quantity:        po.intent.Quantity,
			EntryPrice:      fillPrice,
			EntryMode:       po.entryMode,
			StopLossPrice:   stop,
			TakeProfitPrice: target,
			Status:          portfolio.StatusOpen,
			OpenedAt:        time.Now(),
		}
		if err := c.store.Open(pos); err != nil {
			logger.Errorf("decision: opening %s after fill %s failed: %v", po.intent.StockCode, intentID, err)
			return
		}
		logger.Infof("decision: opened %s qty=%d entry=%.0f stop=%.0f target=%.0f",
			po.intent.StockCode, po.intent.Quantity, fillPrice, stop, target)
	case IntentSell:
		if err := c.store.Close(po.intent.StockCode, fillPrice); err != nil {
			logger.Errorf("decision: closing %s after fill %s failed: %v", po.intent.StockCode, intentID, err)
			return
		}
		logger.Infof("decision: closed %s at %.0f", po.intent.StockCode, fillPrice)
	}
	if c.rec != nil {
		c.rec.RecordOutcome(intentID, "filled", fillPrice)
	}
}

// OnOrderRejected drops a pending buy, or releases a sell latch so the next
// breach can try again.
func (c *Coordinator) OnOrderRejected(intentID string, reason string) {
	po, ok := c.takePending(intentID)
	if !ok {
		logger.Warnf("decision: rejection for unknown intent %s ignored", intentID)
		return
	}
	if po.intent.Type == IntentSell {
		c.store.RevertPending(po.intent.StockCode)
	}
	logger.Warnf("decision: intent %s (%s %s) rejected: %s", intentID, po.intent.Type, po.intent.StockCode, reason)
	if c.rec != nil {
		c.rec.RecordOutcome(intentID, "rejected", 0)
	}
}

func (c *Coordinator) takePending(intentID string) (pendingOrder, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	po, ok := c.pending[intentID]
	if ok {
		delete(c.pending, intentID)
	}
	return po, ok
}

func (c *Coordinator) hasPendingLocked(stockCode string) bool {
	for _, po := range c.pending {
		if po.intent.StockCode == stockCode {
			return true
		}
	}
	return false
}

func (c *Coordinator) pendingBuyCountLocked() int {
	n := 0
	for _, po := range c.pending {
		if po.intent.Type == IntentBuy {
			n++
		}
	}
	return n
}

// reservedCashLocked is the cash already committed to unconfirmed buys.
func (c *Coordinator) reservedCashLocked() float64 {
	total := 0.0
	for _, po := range c.pending {
		if po.intent.Type == IntentBuy {
			total += float64(po.intent.Quantity) * po.intent.RefPrice
		}
	}
	return total
}
