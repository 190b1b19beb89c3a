package portfolio

import (
	"time"

	"stockpilot/internal/risk"
)

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	StatusOpen        PositionStatus = "open"
	StatusPendingExit PositionStatus = "pending_exit"
	StatusClosed      PositionStatus = "closed"
)

// Position is the canonical holding record. EntryMode is the risk parameter
// snapshot in effect at entry; the exit prices derived from it never change
// for the life of the position, regardless of later mode switches.
type Position struct {
	StockCode       string          `json:"stock_code"`
	Quantity        int64           `json:"quantity"`
	EntryPrice      float64         `json:"entry_price"`
	EntryMode       risk.ModeParams `json:"entry_mode"`
	StopLossPrice   float64         `json:"stop_loss_price"`
	TakeProfitPrice float64         `json:"take_profit_price"`
	Status          PositionStatus  `json:"status"`
	OpenedAt        time.Time       `json:"opened_at"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
	ExitPrice       float64         `json:"exit_price,omitempty"`
}

// Cost returns the cash consumed at entry.
func (p Position) Cost() float64 {
	return float64(p.Quantity) * p.EntryPrice
}
