package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stockpilot/internal/logger"
	"stockpilot/internal/types"
)

// RunDeepOnce executes one deep-scan cycle: enrich the latest fast snapshot
// with institutional flow, orderbook depth and close history, score what is
// known so far, and keep the best deep_limit candidates.
func (f *Funnel) RunDeepOnce(ctx context.Context) {
	fast := f.fast.load()
	if fast == nil || len(fast.Candidates) == 0 {
		logger.Debugf("deep-scan: no fast snapshot yet")
		return
	}

	var (
		mu       sync.Mutex
		enriched = make([]types.Candidate, 0, len(fast.Candidates))
		failed   int
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.cfg.DeepConcurrency)
	for _, c := range fast.Candidates {
		group.Go(func() error {
			out, err := f.enrichOne(groupCtx, c)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				logger.Warnf("deep-scan: dropping %s: %v", c.StockCode, err)
				return nil // per-candidate failure never aborts the cycle
			}
			enriched = append(enriched, out)
			return nil
		})
	}
	_ = group.Wait()

	if len(enriched) == 0 && failed > 0 {
		// Every fetch failed: treat as a whole-stage outage and keep the
		// previous snapshot.
		f.deep.recordError(errUpstreamDown(failed))
		logger.Errorf("deep-scan: all %d candidate fetches failed, keeping previous snapshot", failed)
		return
	}

	sort.Slice(enriched, func(i, j int) bool {
		si, sj := enriched[i].Score, enriched[j].Score
		if si.Percentage != sj.Percentage {
			return si.Percentage > sj.Percentage
		}
		return enriched[i].StockCode < enriched[j].StockCode
	})
	if len(enriched) > f.cfg.DeepLimit {
		enriched = enriched[:f.cfg.DeepLimit]
	}

	if ctx.Err() != nil {
		return
	}
	f.deep.publish(types.StageSnapshot{
		Stage:       types.StageDeep,
		CycleID:     uuid.NewString(),
		Candidates:  enriched,
		GeneratedAt: time.Now(),
		InputCount:  len(fast.Candidates),
		OutputCount: len(enriched),
	})
	logger.Debugf("deep-scan: %d/%d candidates (%d failed)", len(enriched), len(fast.Candidates), failed)
}

func errUpstreamDown(failed int) error {
	return fmt.Errorf("all %d candidate fetches failed", failed)
}

func (f *Funnel) enrichOne(ctx context.Context, c types.Candidate) (types.Candidate, error) {
	flow, err := f.provider.InstitutionalFlow(ctx, c.StockCode)
	if err != nil {
		return types.Candidate{}, err
	}
	book, err := f.provider.Orderbook(ctx, c.StockCode)
	if err != nil {
		return types.Candidate{}, err
	}
	closes, err := f.provider.CloseHistory(ctx, c.StockCode, f.cfg.HistoryBars)
	if err != nil {
		return types.Candidate{}, err
	}

	metrics := c.Metrics
	metrics.NetInstitutionalBuy = flow.NetBuyQty
	metrics.FlowKnown = true
	metrics.BidDepth = book.BidDepth()
	metrics.AskDepth = book.AskDepth()
	metrics.DepthKnown = true
	metrics.Closes = closes

	score := f.engine.Compute(metrics)
	return types.Candidate{
		StockCode:  c.StockCode,
		Stage:      types.StageDeep,
		Metrics:    metrics,
		Score:      &score,
		ObservedAt: time.Now(),
	}, nil
}
