package types

import "time"

// Stage identifies which funnel stage produced a candidate.
type Stage string

const (
	StageFast Stage = "fast"
	StageDeep Stage = "deep"
	StageAI   Stage = "ai"
)

// Metrics holds the raw per-stock inputs a candidate accumulates as it moves
// through the funnel. Fast scan fills the quote fields; deep scan fills depth,
// institutional flow and close history.
type Metrics struct {
	Price     float64 `json:"price"`
	Volume    int64   `json:"volume"`
	AvgVolume int64   `json:"avg_volume,omitempty"`
	Turnover  float64 `json:"turnover"`
	ChangePct float64 `json:"change_pct"`

	BidDepth            float64   `json:"bid_depth,omitempty"`
	AskDepth            float64   `json:"ask_depth,omitempty"`
	NetInstitutionalBuy float64   `json:"net_institutional_buy,omitempty"`
	Closes              []float64 `json:"closes,omitempty"`

	DepthKnown bool `json:"-"` // orderbook was fetched this cycle
	FlowKnown  bool `json:"-"` // institutional flow was fetched this cycle
}

// Candidate is one stock under consideration. Values are immutable once a
// stage publishes them; the next cycle builds new ones.
type Candidate struct {
	StockCode  string            `json:"stock_code"`
	Stage      Stage             `json:"stage"`
	Metrics    Metrics           `json:"metrics"`
	Score      *ScoreBreakdown   `json:"score,omitempty"`
	AI         *AIRecommendation `json:"ai,omitempty"`
	ObservedAt time.Time         `json:"observed_at"`
}

// AIRecommendation is the advisor's verdict for a single candidate.
type AIRecommendation struct {
	Action     string  `json:"action"` // buy | hold | sell
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// StageSnapshot is the immutable, atomically published output of one funnel
// stage run.
type StageSnapshot struct {
	Stage       Stage       `json:"stage"`
	CycleID     string      `json:"cycle_id"`
	Candidates  []Candidate `json:"candidates"`
	GeneratedAt time.Time   `json:"generated_at"`
	InputCount  int         `json:"input_count"`
	OutputCount int         `json:"output_count"`
}
