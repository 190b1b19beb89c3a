package advisor

import (
	"context"
	"errors"
	"fmt"

	"stockpilot/internal/types"
)

// Advisor is the AI analysis backend consumed by the funnel's final stage.
type Advisor interface {
	Analyze(ctx context.Context, candidate types.Candidate) (types.AIRecommendation, error)
}

// TimeoutError marks a per-candidate analysis timeout. The AI stage drops
// only that candidate and keeps the cycle going.
type TimeoutError struct {
	StockCode string
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("advisor timeout for %s: %v", e.StockCode, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}
