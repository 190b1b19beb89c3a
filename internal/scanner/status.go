package scanner

import (
	"time"

	"stockpilot/internal/types"
)

// StageStatus is what the monitoring layer sees for one funnel stage.
type StageStatus struct {
	Stage       types.Stage `json:"stage"`
	Interval    string      `json:"interval"`
	OutputCount int         `json:"output_count"`
	GeneratedAt time.Time   `json:"generated_at,omitempty"`
	Stale       bool        `json:"stale"`
	LastError   string      `json:"last_error,omitempty"`
	LastErrorAt time.Time   `json:"last_error_at,omitempty"`
}

// Status reports all three stages. A stage is stale when its newest snapshot
// is older than its own interval.
func (f *Funnel) Status() []StageStatus {
	now := time.Now()
	return []StageStatus{
		stageStatus(types.StageFast, f.cfg.FastInterval, &f.fast, now),
		stageStatus(types.StageDeep, f.cfg.DeepInterval, &f.deep, now),
		stageStatus(types.StageAI, f.cfg.AIInterval, &f.final, now),
	}
}

func stageStatus(stage types.Stage, interval time.Duration, state *stageState, now time.Time) StageStatus {
	status := StageStatus{
		Stage:    stage,
		Interval: interval.String(),
		Stale:    true,
	}
	if snap := state.load(); snap != nil {
		status.OutputCount = snap.OutputCount
		status.GeneratedAt = snap.GeneratedAt
		status.Stale = now.Sub(snap.GeneratedAt) > interval
	}
	if lastErr := state.lastErr.Load(); lastErr != nil {
		status.LastError = lastErr.Msg
		status.LastErrorAt = lastErr.At
	}
	return status
}
