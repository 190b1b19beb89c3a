package decision

import "context"

// OrderExecutor is the downstream order gateway. Submission is asynchronous:
// the returned intent id is later confirmed or rejected out-of-band through
// the ConfirmationSink wired into the coordinator.
type OrderExecutor interface {
	// SubmitBuy places a buy for qty shares. refPrice is the price the
	// decision was made at; executors may fill at a different price.
	SubmitBuy(ctx context.Context, stockCode string, qty int64, refPrice float64) (intentID string, err error)
	// SubmitSell places a sell for the full position quantity.
	SubmitSell(ctx context.Context, stockCode string, qty int64, refPrice float64) (intentID string, err error)
}

// ConfirmationSink receives asynchronous order outcomes.
type ConfirmationSink interface {
	OnOrderFilled(intentID string, fillPrice float64)
	OnOrderRejected(intentID string, reason string)
}
