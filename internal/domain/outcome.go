package domain

import "time"

// OutcomeKind is the closed set of per-evaluation results.
type OutcomeKind string

const (
	OutcomeSignal    OutcomeKind = "signal"
	OutcomeNoSignal  OutcomeKind = "no_signal"
	OutcomeEarlyExit OutcomeKind = "early_exit"
)

// StageResult records one step of the six-step leverage decision path.
type StageResult struct {
	Stage           string
	Success         bool
	ExecutionTimeMS int64
	DataProcessed   int
	ItemsFound      int
	ErrorMessage    string
}

// Signal is an emitted trade recommendation — every hard invariant in
// spec §4.5 must hold for a value of this type before it is recorded.
type Signal struct {
	EvaluationTime   time.Time
	ReferencePrice   float64
	EntryPrice       float64
	Leverage         float64
	Confidence       float64
	StopLoss         float64
	TakeProfit       float64
	RiskReward       float64
	StrategyTag      string
	StageResults     [6]StageResult
}

// NoSignal records that the full chain ran but the decision step declined.
// This is a valid, final, observable outcome — never a failure.
type NoSignal struct {
	EvaluationTime time.Time
	Reason         string // e.g. "leverage_conditions_not_met"
}

// EarlyExit records a short-circuit in either the filter chain or the
// decision path.
type EarlyExit struct {
	EvaluationTime   time.Time
	Stage            string // filter gate name or decision step name
	ClassifiedReason string
	Metrics          map[string]interface{}
}

// Outcome is a tagged union over the three outcome kinds, produced once per
// evaluation timepoint.
type Outcome struct {
	Kind      OutcomeKind
	Signal    *Signal
	NoSignal  *NoSignal
	EarlyExit *EarlyExit
}

// AnalysisRecord is the persisted per-task summary.
type AnalysisRecord struct {
	ExecutionID         string
	StrategyID          int64
	Timeframe           Timeframe
	TotalTrades         int
	WinRate             float64
	SharpeRatio         float64
	MaxDrawdownPercent  float64
	AverageLeverage     float64
	CompressedTradePath string
	ChartPath           string
	TaskStatus          TaskStatus
	CreatedAt           time.Time
	StartedAt           *time.Time
	CompletedAt         *time.Time
	FilterHistogram     map[string]int
	EarlyExitHistogram  map[string]int
	NoSignalCount       int
	TotalEvaluations    int
}
