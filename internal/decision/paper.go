package decision

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"stockpilot/internal/logger"
)

// PaperExecutor simulates the broker: every order fills at the reference
// price shifted by a fixed slippage fraction. Confirmations are delivered
// asynchronously on their own goroutine, the same shape a live gateway's
// execution reports would take.
type PaperExecutor struct {
	slippage float64

	mu   sync.RWMutex
	sink ConfirmationSink
	wg   sync.WaitGroup
}

func NewPaperExecutor(slippage float64) *PaperExecutor {
	return &PaperExecutor{slippage: slippage}
}

// SetSink must be called before the first submission.
func (e *PaperExecutor) SetSink(sink ConfirmationSink) {
	e.mu.Lock()
	e.sink = sink
	e.mu.Unlock()
}

func (e *PaperExecutor) SubmitBuy(ctx context.Context, stockCode string, qty int64, refPrice float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	fill := refPrice * (1 + e.slippage)
	logger.Infof("paper: buy %s qty=%d ref=%.0f fill=%.0f intent=%s", stockCode, qty, refPrice, fill, id)
	e.confirm(id, fill)
	return id, nil
}

func (e *PaperExecutor) SubmitSell(ctx context.Context, stockCode string, qty int64, refPrice float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	fill := refPrice * (1 - e.slippage)
	logger.Infof("paper: sell %s qty=%d ref=%.0f fill=%.0f intent=%s", stockCode, qty, refPrice, fill, id)
	e.confirm(id, fill)
	return id, nil
}

func (e *PaperExecutor) confirm(intentID string, fillPrice float64) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.mu.RLock()
		sink := e.sink
		e.mu.RUnlock()
		if sink == nil {
			logger.Warnf("paper: no confirmation sink, intent %s dropped", intentID)
			return
		}
		sink.OnOrderFilled(intentID, fillPrice)
	}()
}

// Drain blocks until all in-flight confirmations have been delivered.
func (e *PaperExecutor) Drain() {
	e.wg.Wait()
}
