package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stockpilot/internal/advisor"
	"stockpilot/internal/logger"
	"stockpilot/internal/types"
)

// RunAIOnce executes one AI-scan cycle: every deep candidate goes to the
// advisor concurrently (the cycle itself stays single-flight), then the gate
// keeps candidates clearing both the score and confidence thresholds.
func (f *Funnel) RunAIOnce(ctx context.Context) {
	deep := f.deep.load()
	if deep == nil || len(deep.Candidates) == 0 {
		logger.Debugf("ai-scan: no deep snapshot yet")
		return
	}
	flt := f.currentFilters()

	var (
		mu       sync.Mutex
		analyzed = make([]types.Candidate, 0, len(deep.Candidates))
		failed   int
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.cfg.AIConcurrency)
	for _, c := range deep.Candidates {
		group.Go(func() error {
			rec, err := f.analyzeOne(groupCtx, c)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if advisor.IsTimeout(err) {
					logger.Warnf("ai-scan: %s timed out, excluded from this cycle", c.StockCode)
				} else {
					logger.Warnf("ai-scan: %s excluded: %v", c.StockCode, err)
				}
				return nil
			}
			out := c
			out.Stage = types.StageAI
			out.AI = &rec
			out.ObservedAt = time.Now()
			analyzed = append(analyzed, out)
			return nil
		})
	}
	_ = group.Wait()

	if len(analyzed) == 0 && failed > 0 {
		f.final.recordError(errUpstreamDown(failed))
		logger.Errorf("ai-scan: all %d advisor calls failed, keeping previous snapshot", failed)
		return
	}

	// Deep order (score descending) is preserved through the gate.
	gated := make([]types.Candidate, 0, f.cfg.AILimit)
	for _, c := range deep.Candidates {
		hit := findByCode(analyzed, c.StockCode)
		if hit == nil {
			continue
		}
		if hit.Score == nil || hit.Score.Percentage < flt.MinScorePct {
			continue
		}
		if hit.AI.Confidence < flt.MinConfidence {
			continue
		}
		gated = append(gated, *hit)
		if len(gated) == f.cfg.AILimit {
			break
		}
	}

	if ctx.Err() != nil {
		return
	}
	snap := types.StageSnapshot{
		Stage:       types.StageAI,
		CycleID:     uuid.NewString(),
		Candidates:  gated,
		GeneratedAt: time.Now(),
		InputCount:  len(deep.Candidates),
		OutputCount: len(gated),
	}
	f.final.publish(snap)
	logger.Infof("ai-scan: %d/%d candidates passed the gate (%d failed)", len(gated), len(deep.Candidates), failed)
	f.notifyFinal(snap)
}

func findByCode(list []types.Candidate, code string) *types.Candidate {
	for i := range list {
		if list[i].StockCode == code {
			return &list[i]
		}
	}
	return nil
}
