package filterengine

import (
	"math"
	"time"

	"binance-trading-bot/internal/domain"
)

// Grid is the set of candidate evaluation timepoints for one task, sized
// per spec §4.4: step-aligned candle open times within the lookback window,
// capped by target_coverage and an absolute evaluation cap.
type Grid struct {
	Timepoints []time.Time
}

// BuildGrid computes the evaluation grid. now is the task's reference clock
// (injected rather than time.Now() so planning is deterministic and
// testable); earliestAvailable is the first candle open time PreparedData
// actually has — the grid never starts before it, since fabricating
// timestamps ahead of available data is a correctness bug per spec §4.4.
func BuildGrid(now time.Time, windowDays int, step time.Duration, targetCoverage float64, cap int, earliestAvailable time.Time) Grid {
	start := now.AddDate(0, 0, -windowDays)
	if earliestAvailable.After(start) {
		start = earliestAvailable
	}
	if step <= 0 || !start.Before(now) {
		return Grid{}
	}

	var candidates []time.Time
	for t := start; !t.After(now); t = t.Add(step) {
		candidates = append(candidates, t)
	}

	if targetCoverage <= 0 {
		targetCoverage = 1.0
	}
	want := int(math.Ceil(targetCoverage * float64(len(candidates))))
	if cap > 0 && want > cap {
		want = cap
	}
	if want > len(candidates) {
		want = len(candidates)
	}
	return Grid{Timepoints: candidates[:want]}
}

// Histogram tallies rejects by gate index (1-based, matching spec §4.4's
// `{filter_i: reject_count}`).
type Histogram map[int]int

// EvaluationOutcome is what one timepoint's full gate-chain-plus-decision
// run produces, before the recorder classifies it into Signal/NoSignal/
// EarlyExit.
type EvaluationOutcome struct {
	Timepoint  time.Time
	GatePassed bool
	RejectGate int
	RejectInfo GateResult
}

// RunChain applies every gate in order at one timepoint, stopping at the
// first reject (spec §4.4: "the first reject ends the evaluation").
func RunChain(ec *EvalContext) EvaluationOutcome {
	for i, gate := range Gates {
		res := gate(ec)
		if !res.Pass {
			return EvaluationOutcome{Timepoint: ec.T, GatePassed: false, RejectGate: i + 1, RejectInfo: res}
		}
	}
	return EvaluationOutcome{Timepoint: ec.T, GatePassed: true}
}

// ReferencePriceAt returns the open of the candle starting at t — the only
// price a gate or decision step may use as "current price" for evaluation
// at t (spec §4.4's price rule).
func ReferencePriceAt(data *PreparedData, t time.Time) (float64, bool) {
	candle, ok := data.CandleAt(t)
	if !ok {
		return 0, false
	}
	return candle.Open, true
}

// FilteringEfficiency is trades_emitted / |candidates|, per spec §4.4.
func FilteringEfficiency(tradesEmitted, candidateCount int) float64 {
	if candidateCount == 0 {
		return 0
	}
	return float64(tradesEmitted) / float64(candidateCount)
}

// TimeframeStep maps a timeframe to its candle duration, used both to
// derive the evaluation grid's step and to walk PreparedData.
func TimeframeStep(tf domain.Timeframe) time.Duration {
	switch tf {
	case domain.Timeframe1m:
		return time.Minute
	case domain.Timeframe3m:
		return 3 * time.Minute
	case domain.Timeframe5m:
		return 5 * time.Minute
	case domain.Timeframe15m:
		return 15 * time.Minute
	case domain.Timeframe30m:
		return 30 * time.Minute
	case domain.Timeframe1h:
		return time.Hour
	case domain.Timeframe4h:
		return 4 * time.Hour
	case domain.Timeframe1d:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}
