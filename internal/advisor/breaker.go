package advisor

import (
	"context"
	"fmt"
	"time"

	"stockpilot/internal/pkg/circuit"
	"stockpilot/internal/types"
)

// BreakerAdvisor wraps an Advisor with a circuit breaker so a dead AI backend
// degrades into skipped cycles instead of a stall of timeouts.
type BreakerAdvisor struct {
	inner   Advisor
	breaker *circuit.Breaker
}

func WithBreaker(inner Advisor, threshold int, cooldown time.Duration) *BreakerAdvisor {
	return &BreakerAdvisor{
		inner:   inner,
		breaker: circuit.NewBreaker("advisor", threshold, cooldown),
	}
}

func (b *BreakerAdvisor) Analyze(ctx context.Context, candidate types.Candidate) (types.AIRecommendation, error) {
	if !b.breaker.Allow() {
		return types.AIRecommendation{}, fmt.Errorf("advisor circuit open, skipping %s", candidate.StockCode)
	}
	rec, err := b.inner.Analyze(ctx, candidate)
	if err != nil {
		b.breaker.RecordFailure()
		return types.AIRecommendation{}, err
	}
	b.breaker.RecordSuccess()
	return rec, nil
}
