package scanner

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"stockpilot/internal/logger"
	"stockpilot/internal/types"
)

// RunFastOnce executes one fast-scan cycle: filter the whole-market snapshot
// by price band and minimum volume, rank by turnover, truncate, publish.
func (f *Funnel) RunFastOnce(ctx context.Context) {
	entries, err := f.provider.UniverseSnapshot(ctx)
	if err != nil {
		// Stale-but-available: previous snapshot stays published untouched.
		f.fast.recordError(err)
		logger.Errorf("fast-scan: universe fetch failed, keeping previous snapshot: %v", err)
		return
	}
	flt := f.currentFilters()
	now := time.Now()

	kept := make([]types.Candidate, 0, f.cfg.FastLimit)
	for _, e := range entries {
		if e.Price <= 0 || e.Volume < 0 || e.StockCode == "" {
			logger.Warnf("fast-scan: dropping malformed universe entry %+v", e)
			continue
		}
		if e.Price < flt.MinPrice || e.Price > flt.MaxPrice {
			continue
		}
		if e.Volume < flt.MinVolume {
			continue
		}
		kept = append(kept, types.Candidate{
			StockCode: e.StockCode,
			Stage:     types.StageFast,
			Metrics: types.Metrics{
				Price:     e.Price,
				Volume:    e.Volume,
				AvgVolume: e.AvgVolume,
				Turnover:  e.Turnover,
				ChangePct: e.ChangePct,
			},
			ObservedAt: now,
		})
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Metrics.Turnover != kept[j].Metrics.Turnover {
			return kept[i].Metrics.Turnover > kept[j].Metrics.Turnover
		}
		return kept[i].StockCode < kept[j].StockCode
	})
	if len(kept) > f.cfg.FastLimit {
		kept = kept[:f.cfg.FastLimit]
	}

	if ctx.Err() != nil {
		return // shutting down: discard, never publish partial results
	}
	f.fast.publish(types.StageSnapshot{
		Stage:       types.StageFast,
		CycleID:     uuid.NewString(),
		Candidates:  kept,
		GeneratedAt: now,
		InputCount:  len(entries),
		OutputCount: len(kept),
	})
	logger.Debugf("fast-scan: %d/%d candidates", len(kept), len(entries))
}
