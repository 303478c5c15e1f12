// Package domain holds the shared data model of the onboarding pipeline:
// instruments, timeframes, strategies, executions, tasks, and the three
// outcome kinds a single evaluation can produce.
package domain

import (
	"strconv"
	"time"
)

// Timeframe is an enumerated candle interval.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe3m  Timeframe = "3m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// AllTimeframes lists every timeframe recognized by the system, in the
// order the default mode's cross product iterates them.
var AllTimeframes = []Timeframe{
	Timeframe1m, Timeframe3m, Timeframe5m, Timeframe15m,
	Timeframe30m, Timeframe1h, Timeframe4h, Timeframe1d,
}

// TimeframeConfig is the per-timeframe config bundle referenced by spec §3.
type TimeframeConfig struct {
	Timeframe        Timeframe
	EvaluationStep   time.Duration
	LookbackDays     int
	TargetCoverage   float64 // 0 means "use_default"
	FilterThresholds FilterThresholds
}

// FilterThresholds is the set of user/strategy/timeframe overridable
// thresholds resolved per spec §4.3's four-level chain. A nil pointer field
// means "not set at this level"; resolution walks up the chain until one is
// non-nil, finally falling back to config.CentralDefaults.
type FilterThresholds struct {
	MinLeverage           *float64
	MinConfidence         *float64
	MinRiskReward         *float64
	MinSupportStrength    *float64
	MinResistanceStrength *float64
}

// BaseKind is the closed enumeration of strategy families.
type BaseKind string

const (
	ConservativeML         BaseKind = "Conservative_ML"
	AggressiveML           BaseKind = "Aggressive_ML"
	AggressiveTraditional  BaseKind = "Aggressive_Traditional"
	FullML                 BaseKind = "Full_ML"
	Balanced               BaseKind = "Balanced"
)

// Strategy is a named, versioned configuration. Uniqueness is
// (Name, BaseKind, Timeframe).
type Strategy struct {
	ID              int64
	Name            string
	BaseKind        BaseKind
	Timeframe       Timeframe
	Parameters      map[string]float64
	LeverageCap     float64
	StopTakeProfile string // which stop-loss/take-profit calculator to use
	FilterOverrides FilterThresholds
}

// ExecutionStatus is the closed set of execution lifecycle states.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionSuccess   ExecutionStatus = "success"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Mode is how the task set for an execution is selected.
type Mode string

const (
	ModeDefault   Mode = "default"
	ModeSelective Mode = "selective"
	ModeCustom    Mode = "custom"
)

// StructuredError is one entry in an Execution's ordered error list.
type StructuredError struct {
	Reason     string                 `json:"reason"`
	Suggestion string                 `json:"suggestion"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Stage      string                 `json:"stage,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Execution is one user-initiated onboarding request.
type Execution struct {
	ExecutionID          string
	Symbol               string
	Mode                 Mode
	SelectedStrategyIDs  []int64
	Status               ExecutionStatus
	ProgressPercent      float64
	CurrentOperation     string
	StartedAt            time.Time
	CompletedAt          *time.Time
	FilterParams         *FilterParamOverrides
	Errors               []StructuredError
	Provider             string // "hyperliquid" | "gateio", explicit, never defaulted
}

// FilterParamOverrides mirrors the Submission API's filter_params body.
type FilterParamOverrides struct {
	EntryConditions   *EntryConditionOverrides   `json:"entry_conditions,omitempty"`
	SupportResistance *SupportResistanceOverrides `json:"support_resistance,omitempty"`
}

type EntryConditionOverrides struct {
	MinLeverage   *float64 `json:"min_leverage,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
	MinRiskReward *float64 `json:"min_risk_reward,omitempty"`
}

type SupportResistanceOverrides struct {
	MinSupportStrength    *float64 `json:"min_support_strength,omitempty"`
	MinResistanceStrength *float64 `json:"min_resistance_strength,omitempty"`
}

// TaskStatus is the closed set of task lifecycle states.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

// Task is one (execution_id, strategy_id, timeframe) unit of work.
type Task struct {
	ExecutionID  string
	StrategyID   int64
	Timeframe    Timeframe
	Status       TaskStatus
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	RetryCount   int
}

// Key returns the (execution_id, strategy_id, timeframe) uniqueness tuple.
func (t Task) Key() string {
	return t.ExecutionID + "|" + strconv.FormatInt(t.StrategyID, 10) + "|" + string(t.Timeframe)
}

// Candle is one OHLCV bar, UTC timestamps.
type Candle struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}
