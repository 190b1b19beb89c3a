package decisionlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpilot/internal/decision"
)

func TestIntentRoundTrip(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	defer store.Close()

	store.RecordIntent(decision.Intent{
		ID:        "intent-1",
		Type:      decision.IntentBuy,
		StockCode: "005930",
		Quantity:  28,
		RefPrice:  70_000,
		CycleID:   "cycle-1",
		CreatedAt: time.Now(),
	})
	store.RecordIntent(decision.Intent{
		ID:        "intent-2",
		Type:      decision.IntentSell,
		StockCode: "005930",
		Quantity:  28,
		RefPrice:  77_000,
		CreatedAt: time.Now(),
	})
	store.RecordOutcome("intent-1", "filled", 70_100)

	rows, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Most recent first.
	assert.Equal(t, "intent-2", rows[0].IntentID)
	assert.Equal(t, "submitted", rows[0].Status)

	assert.Equal(t, "intent-1", rows[1].IntentID)
	assert.Equal(t, "filled", rows[1].Status)
	assert.InDelta(t, 70_100, rows[1].FillPrice, 1e-9)
	assert.Equal(t, "cycle-1", rows[1].CycleID)
	assert.Equal(t, int64(28), rows[1].Quantity)
}

func TestEmptyPathRejected(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}
