package portfolio

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"stockpilot/internal/risk"
)

// PositionRecord is the gorm row backing one position. The entry-mode
// snapshot is stored as a JSON column so the frozen parameters survive
// restarts byte-for-byte.
type PositionRecord struct {
	ID              uint           `gorm:"primaryKey"`
	StockCode       string         `gorm:"index;size:16"`
	Quantity        int64
	EntryPrice      float64
	EntryMode       datatypes.JSON `gorm:"column:entry_mode"`
	StopLossPrice   float64
	TakeProfitPrice float64
	Status          string `gorm:"index;size:16"`
	OpenedAt        time.Time
	ClosedAt        *time.Time
	ExitPrice       float64
}

func (PositionRecord) TableName() string { return "positions" }

func toRecord(p Position) (PositionRecord, error) {
	mode, err := json.Marshal(p.EntryMode)
	if err != nil {
		return PositionRecord{}, fmt.Errorf("encoding entry mode failed: %w", err)
	}
	return PositionRecord{
		StockCode:       p.StockCode,
		Quantity:        p.Quantity,
		EntryPrice:      p.EntryPrice,
		EntryMode:       datatypes.JSON(mode),
		StopLossPrice:   p.StopLossPrice,
		TakeProfitPrice: p.TakeProfitPrice,
		Status:          string(p.Status),
		OpenedAt:        p.OpenedAt,
		ClosedAt:        p.ClosedAt,
		ExitPrice:       p.ExitPrice,
	}, nil
}

func fromRecord(rec PositionRecord) (Position, error) {
	var mode risk.ModeParams
	if len(rec.EntryMode) > 0 {
		if err := json.Unmarshal(rec.EntryMode, &mode); err != nil {
			return Position{}, fmt.Errorf("decoding entry mode failed: %w", err)
		}
	}
	return Position{
		StockCode:       rec.StockCode,
		Quantity:        rec.Quantity,
		EntryPrice:      rec.EntryPrice,
		EntryMode:       mode,
		StopLossPrice:   rec.StopLossPrice,
		TakeProfitPrice: rec.TakeProfitPrice,
		Status:          PositionStatus(rec.Status),
		OpenedAt:        rec.OpenedAt,
		ClosedAt:        rec.ClosedAt,
		ExitPrice:       rec.ExitPrice,
	}, nil
}
