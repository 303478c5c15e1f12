// Package decisionpath implements the Leverage Decision Path (spec §4.5):
// six steps run for every timepoint that clears the filtering engine, each
// able to short-circuit with a classified early-exit reason.
package decisionpath

import (
	"time"

	"binance-trading-bot/config"
	"binance-trading-bot/internal/apperrors"
	"binance-trading-bot/internal/domain"
	"binance-trading-bot/internal/filterengine"
)

// Result is the per-evaluation AnalysisResult of spec §4.5. Steps 1-5
// short-circuit into EarlyExit; step 6 declining after every prior step
// ran is NoSignal, per domain.NoSignal's own doc — the chain completed,
// the decision step just said no.
type Result struct {
	Completed      bool
	NoSignal       bool
	NoSignalReason string
	EarlyExit      bool
	Cancelled      bool
	ExitStage      string
	ExitReason     string
	StageResults   [6]domain.StageResult
	Recommendation *domain.Signal
}

// Run executes the six steps in order against one evaluation timepoint.
// elapsed lets tests control ExecutionTimeMS without depending on wall time.
// cancelled is polled between every stage (spec §4.5's "between the six
// decision steps" checkpoint); a worker pool wires it to ledger.IsCancelled.
func Run(ec *filterengine.EvalContext, defaults config.CentralDefaults, elapsed func() int64, cancelled func() bool) Result {
	var stages [6]domain.StageResult

	marketData := ec.Data.AsOf(ec.T)
	stages[0] = domain.StageResult{Stage: "data_slice", Success: len(marketData) >= ec.SwingLookback*2, DataProcessed: len(marketData), ExecutionTimeMS: elapsed()}
	if !stages[0].Success {
		return earlyExit(stages, 0, "insufficient_data")
	}
	if cancelled() {
		return Result{Cancelled: true, StageResults: stages}
	}

	supports, resistances := ec.Data.SupportResistance(ec.T, ec.SwingLookback)
	stages[1] = domain.StageResult{Stage: "support_resistance", Success: len(supports) > 0 || len(resistances) > 0, ItemsFound: len(supports) + len(resistances), ExecutionTimeMS: elapsed()}
	if !stages[1].Success {
		return earlyExit(stages, 1, "no_support_resistance")
	}
	if cancelled() {
		return Result{Cancelled: true, StageResults: stages}
	}

	breakoutProbability, bounceProbability, mlOK := predict(ec)
	stages[2] = domain.StageResult{Stage: "ml_prediction", Success: mlOK, ExecutionTimeMS: elapsed()}
	if !stages[2].Success {
		return earlyExit(stages, 2, "ml_prediction_failed")
	}
	if cancelled() {
		return Result{Cancelled: true, StageResults: stages}
	}

	btcWindow := ec.Data.BTCAsOf(ec.T)
	btcOK := len(btcWindow) >= ec.SwingLookback*4+1
	var correlationFactor float64
	if btcOK {
		correlationFactor = btcCorrelation(ec)
	}
	stages[3] = domain.StageResult{Stage: "btc_correlation_risk", Success: btcOK, DataProcessed: len(btcWindow), ExecutionTimeMS: elapsed()}
	if !stages[3].Success {
		return earlyExit(stages, 3, "btc_data_insufficient")
	}
	if cancelled() {
		return Result{Cancelled: true, StageResults: stages}
	}

	trend, volatility, anomaly, contextOK := marketContext(ec)
	stages[4] = domain.StageResult{Stage: "market_context", Success: contextOK, ExecutionTimeMS: elapsed()}
	if !stages[4].Success {
		return earlyExit(stages, 4, "market_context_failed")
	}
	if cancelled() {
		return Result{Cancelled: true, StageResults: stages}
	}

	support, supportOK := nearestOf(supports, ec.ReferencePrice)
	resistance, resistanceOK := nearestOf(resistances, ec.ReferencePrice)
	leverage := 0.0
	if supportOK && resistanceOK {
		leverage = filterengine.SafeLeverage(ec.ReferencePrice, support, resistance, volatility, breakoutProbability)
	}
	confidence := combinedConfidence(breakoutProbability, bounceProbability, correlationFactor, anomaly)

	stages[5] = domain.StageResult{Stage: "leverage_decision", Success: leverage >= 2.0 && confidence >= 0.3, ExecutionTimeMS: elapsed()}
	if !stages[5].Success {
		return Result{NoSignal: true, NoSignalReason: "leverage_conditions_not_met", StageResults: stages}
	}

	stopLoss := filterengine.StopLossForLong(ec.ReferencePrice, support, leverage)
	takeProfit := filterengine.TakeProfitForLong(ec.ReferencePrice, resistance, breakoutProbability)
	risk := ec.ReferencePrice - stopLoss
	reward := takeProfit - ec.ReferencePrice
	riskReward := 0.0
	if risk > 0 {
		riskReward = reward / risk
	}

	signal := &domain.Signal{
		EvaluationTime: ec.T,
		ReferencePrice: ec.ReferencePrice,
		EntryPrice:     ec.ReferencePrice,
		Leverage:       leverage,
		Confidence:     confidence,
		StopLoss:       stopLoss,
		TakeProfit:     takeProfit,
		RiskReward:     riskReward,
		StrategyTag:    string(ec.Strategy.BaseKind),
		StageResults:   stages,
	}

	if err := checkInvariants(signal, defaults); err != nil {
		return Result{Completed: false, EarlyExit: true, ExitStage: "invariant_check", ExitReason: "price_consistency", StageResults: stages}
	}
	_ = trend // trend feeds the recommendation's narrative only, not a hard gate

	return Result{Completed: true, EarlyExit: false, StageResults: stages, Recommendation: signal}
}

func earlyExit(stages [6]domain.StageResult, idx int, reason string) Result {
	return Result{
		Completed:    false,
		EarlyExit:    true,
		ExitStage:    stages[idx].Stage,
		ExitReason:   reason,
		StageResults: stages,
	}
}

func nearestOf(levels []filterengine.Level, price float64) (filterengine.Level, bool) {
	var best filterengine.Level
	found := false
	bestDist := -1.0
	for _, l := range levels {
		d := price - l.Price
		if d < 0 {
			d = -d
		}
		if !found || d < bestDist {
			bestDist = d
			best = l
			found = true
		}
	}
	return best, found
}

// checkInvariants enforces the two hard invariants of spec §4.5: the
// stop/entry/take-profit ordering and the price-consistency bound.
func checkInvariants(s *domain.Signal, defaults config.CentralDefaults) error {
	deviation := 0.0
	if s.ReferencePrice > 0 {
		deviation = (s.EntryPrice - s.ReferencePrice) / s.ReferencePrice
		if deviation < 0 {
			deviation = -deviation
		}
	}
	if !(s.StopLoss < s.EntryPrice && s.EntryPrice < s.TakeProfit) {
		return &apperrors.PriceConsistencyError{ReferencePrice: s.ReferencePrice, EntryPrice: s.EntryPrice, DeviationPct: deviation}
	}
	if deviation > defaults.PriceConsistencyPctMax {
		return &apperrors.PriceConsistencyError{ReferencePrice: s.ReferencePrice, EntryPrice: s.EntryPrice, DeviationPct: deviation}
	}
	return nil
}

// Elapsed returns a closure measuring wall-clock milliseconds since it was
// created, for populating StageResult.ExecutionTimeMS without threading a
// stopwatch object through every step.
func Elapsed() func() int64 {
	start := time.Now()
	return func() int64 { return time.Since(start).Milliseconds() }
}
