package market

import (
	"context"
	"errors"
	"fmt"
)

// UniverseEntry is one row of the whole-market ranking snapshot.
type UniverseEntry struct {
	StockCode string  `json:"stock_code"`
	Price     float64 `json:"price"`
	Volume    int64   `json:"volume"`
	AvgVolume int64   `json:"avg_volume"`
	Turnover  float64 `json:"turnover"`
	ChangePct float64 `json:"change_pct"`
}

// FlowSummary aggregates institutional trading for one stock.
type FlowSummary struct {
	NetBuyQty   float64 `json:"net_buy_qty"`
	NetBuyValue float64 `json:"net_buy_value"`
}

// DepthLevel is one price level of the orderbook.
type DepthLevel struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// Orderbook holds the top bid/ask levels for one stock.
type Orderbook struct {
	Bids []DepthLevel `json:"bids"`
	Asks []DepthLevel `json:"asks"`
}

// BidDepth returns total quantity across bid levels.
func (o Orderbook) BidDepth() float64 {
	var total float64
	for _, l := range o.Bids {
		total += float64(l.Quantity)
	}
	return total
}

// AskDepth returns total quantity across ask levels.
func (o Orderbook) AskDepth() float64 {
	var total float64
	for _, l := range o.Asks {
		total += float64(l.Quantity)
	}
	return total
}

// Provider is the market-data dependency consumed by the funnel and the
// decision coordinator. Implementations must return *DataUnavailableError
// when the upstream source cannot be reached at all.
type Provider interface {
	UniverseSnapshot(ctx context.Context) ([]UniverseEntry, error)
	InstitutionalFlow(ctx context.Context, stockCode string) (FlowSummary, error)
	Orderbook(ctx context.Context, stockCode string) (Orderbook, error)
	CloseHistory(ctx context.Context, stockCode string, bars int) ([]float64, error)
	LatestPrice(ctx context.Context, stockCode string) (float64, error)
}

// DataUnavailableError marks a whole-source outage. Stages that see it keep
// their previous snapshot and continue scheduling.
type DataUnavailableError struct {
	Op  string
	Err error
}

func (e *DataUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("market data unavailable: %s", e.Op)
	}
	return fmt.Sprintf("market data unavailable: %s: %v", e.Op, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err as a DataUnavailableError for the given operation.
func Unavailable(op string, err error) error {
	return &DataUnavailableError{Op: op, Err: err}
}

// IsUnavailable reports whether err is (or wraps) a DataUnavailableError.
func IsUnavailable(err error) bool {
	var target *DataUnavailableError
	return errors.As(err, &target)
}
