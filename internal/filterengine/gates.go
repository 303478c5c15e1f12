package filterengine

import (
	"math"
	"time"

	"binance-trading-bot/internal/domain"
)

// GateResult is the outcome of one gate at one evaluation timepoint.
type GateResult struct {
	Pass    bool
	Reason  string
	Metrics map[string]float64
}

func pass() GateResult { return GateResult{Pass: true} }

func reject(reason string, metrics map[string]float64) GateResult {
	return GateResult{Pass: false, Reason: reason, Metrics: metrics}
}

// EvalContext bundles everything a gate needs for one evaluation timepoint.
type EvalContext struct {
	Data           *PreparedData
	T              time.Time
	ReferencePrice float64 // open of the candle at T, never its close
	Strategy       domain.Strategy
	Thresholds     ResolvedThresholds
	SwingLookback  int
	MinVolume      float64
	MaxSpreadPct   float64
	MinLiquidity   float64
	VolatilityMin  float64
	VolatilityMax  float64
}

// Gate is one of the nine ordered checks of spec §4.4.
type Gate func(ec *EvalContext) GateResult

// Gates is the fixed ordered chain. Index+1 is the histogram key used by
// spec §4.4's `{filter_i: reject_count}` statistic.
var Gates = []Gate{
	gateDataQuality,
	gateMarketConditions,
	gateSupportResistanceExistence,
	gateDistanceAndStrength,
	gateMLConfidence,
	gateVolatility,
	gateLeverageFeasibility,
	gateRiskReward,
	gateStrategySpecific,
}

// 1. Data quality: reference price positive, no anomalous spike, no gap in
// the local neighborhood around T.
func gateDataQuality(ec *EvalContext) GateResult {
	if ec.ReferencePrice <= 0 {
		return reject("non_positive_price", nil)
	}
	window := ec.Data.AsOf(ec.T)
	if len(window) < 2 {
		return reject("insufficient_local_data", nil)
	}
	prev := window[len(window)-2]
	curr := window[len(window)-1]
	if prev.Close > 0 {
		move := math.Abs(curr.Open-prev.Close) / prev.Close
		if move > 0.25 {
			return reject("anomalous_price_spike", map[string]float64{"move_pct": move})
		}
	}
	return pass()
}

// 2. Market conditions: volume, spread proxy, liquidity score.
func gateMarketConditions(ec *EvalContext) GateResult {
	candle, ok := ec.Data.CandleAt(ec.T)
	if !ok {
		return reject("candle_not_found", nil)
	}
	if candle.Volume < ec.MinVolume {
		return reject("insufficient_volume", map[string]float64{"volume": candle.Volume})
	}
	spreadPct := 0.0
	if candle.Open > 0 {
		spreadPct = (candle.High - candle.Low) / candle.Open
	}
	if spreadPct > ec.MaxSpreadPct {
		return reject("spread_too_wide", map[string]float64{"spread_pct": spreadPct})
	}
	liquidity := candle.Volume * candle.Close
	if liquidity < ec.MinLiquidity {
		return reject("liquidity_too_low", map[string]float64{"liquidity": liquidity})
	}
	return pass()
}

// 3. Support/resistance existence: at least one level of either kind at or
// above the strength threshold in the window strictly preceding T.
func gateSupportResistanceExistence(ec *EvalContext) GateResult {
	supports, resistances := ec.Data.SupportResistance(ec.T, ec.SwingLookback)
	if !anyAtLeast(supports, ec.Thresholds.MinSupportStrength) && !anyAtLeast(resistances, ec.Thresholds.MinResistanceStrength) {
		return reject("no_support_resistance", nil)
	}
	return pass()
}

func anyAtLeast(levels []Level, threshold float64) bool {
	for _, l := range levels {
		if l.Strength >= threshold {
			return true
		}
	}
	return false
}

// 4. Distance & strength: current price not too close to / too far from the
// nearest qualifying level.
func gateDistanceAndStrength(ec *EvalContext) GateResult {
	supports, resistances := ec.Data.SupportResistance(ec.T, ec.SwingLookback)
	nearest, ok := nearestLevel(ec.ReferencePrice, append(append([]Level{}, supports...), resistances...))
	if !ok {
		return reject("no_qualifying_level", nil)
	}
	distPct := math.Abs(ec.ReferencePrice-nearest.Price) / ec.ReferencePrice
	const minDistance, maxDistance = 0.002, 0.20
	if distPct < minDistance {
		return reject("too_close_to_level", map[string]float64{"distance_pct": distPct})
	}
	if distPct > maxDistance {
		return reject("too_far_from_level", map[string]float64{"distance_pct": distPct})
	}
	return pass()
}

func nearestLevel(price float64, levels []Level) (Level, bool) {
	var best Level
	found := false
	bestDist := math.MaxFloat64
	for _, l := range levels {
		d := math.Abs(price - l.Price)
		if d < bestDist {
			bestDist = d
			best = l
			found = true
		}
	}
	return best, found
}

// 5. ML confidence: a breakout/bounce confidence score derived from trend
// strength, level proximity, and volatility regime — the ML input features
// this system treats as "real features" are these precomputed market
// structure signals, not a trained model artifact. ML input features
// unavailable (empty candle window) is itself a rejection, per spec §4.4.
func gateMLConfidence(ec *EvalContext) GateResult {
	window := ec.Data.AsOf(ec.T)
	if len(window) < ec.SwingLookback*2 {
		return reject("ml_features_unavailable", nil)
	}
	confidence := estimateConfidence(ec)
	if confidence < ec.Thresholds.MinConfidence {
		return reject("confidence_below_threshold", map[string]float64{"confidence": confidence})
	}
	return pass()
}

// estimateConfidence blends level strength and trend consistency into a
// single [0,1] score, in the same weighted-sum-then-clamp idiom the
// teacher's proximity scorer uses for its readiness scores.
func estimateConfidence(ec *EvalContext) float64 {
	supports, resistances := ec.Data.SupportResistance(ec.T, ec.SwingLookback)
	nearest, ok := nearestLevel(ec.ReferencePrice, append(append([]Level{}, supports...), resistances...))
	levelScore := 0.0
	if ok {
		levelScore = nearest.Strength
	}
	vol := ec.Data.Volatility(ec.T, ec.SwingLookback*4)
	volScore := 1 - math.Min(1, vol/0.10)
	return math.Max(0, math.Min(1, 0.6*levelScore+0.4*volScore))
}

// 6. Volatility: must fall within [min, max], and must not be ramping up
// sharply near the max bound.
func gateVolatility(ec *EvalContext) GateResult {
	vol := ec.Data.Volatility(ec.T, ec.SwingLookback*4)
	if vol < ec.VolatilityMin {
		return reject("volatility_too_low", map[string]float64{"volatility": vol})
	}
	if vol > ec.VolatilityMax {
		return reject("volatility_too_high", map[string]float64{"volatility": vol})
	}
	prior := ec.Data.Volatility(ec.T.Add(-1*time.Hour), ec.SwingLookback*4)
	if prior > 0 && vol > ec.VolatilityMax*0.9 && vol > prior*1.3 {
		return reject("volatility_ramping_near_max", map[string]float64{"volatility": vol, "prior": prior})
	}
	return pass()
}

// 7. Leverage feasibility: the safe leverage bound (computed the same way
// the decision path's leverage step computes it) must fall inside
// [min_leverage, strategy cap].
func gateLeverageFeasibility(ec *EvalContext) GateResult {
	supports, resistances := ec.Data.SupportResistance(ec.T, ec.SwingLookback)
	support, sok := nearestLevel(ec.ReferencePrice, supports)
	resistance, rok := nearestLevel(ec.ReferencePrice, resistances)
	if !sok || !rok {
		return reject("leverage_inputs_unavailable", nil)
	}
	vol := ec.Data.Volatility(ec.T, ec.SwingLookback*4)
	leverage := SafeLeverage(ec.ReferencePrice, support, resistance, vol, 0)
	if leverage < ec.Thresholds.MinLeverage || leverage > ec.Strategy.LeverageCap {
		return reject("leverage_infeasible", map[string]float64{"leverage": leverage})
	}
	return pass()
}

// 8. Risk/reward: computed ratio must clear min_risk_reward; max loss % and
// profit probability are checked against the strategy's own caps.
func gateRiskReward(ec *EvalContext) GateResult {
	supports, resistances := ec.Data.SupportResistance(ec.T, ec.SwingLookback)
	support, sok := nearestLevel(ec.ReferencePrice, supports)
	resistance, rok := nearestLevel(ec.ReferencePrice, resistances)
	if !sok || !rok {
		return reject("risk_reward_inputs_unavailable", nil)
	}
	vol := ec.Data.Volatility(ec.T, ec.SwingLookback*4)
	confidence := estimateConfidence(ec)
	leverage := SafeLeverage(ec.ReferencePrice, support, resistance, vol, 0)
	stopLoss := StopLossForLong(ec.ReferencePrice, support, leverage)
	takeProfit := TakeProfitForLong(ec.ReferencePrice, resistance, confidence)
	risk := ec.ReferencePrice - stopLoss
	reward := takeProfit - ec.ReferencePrice
	if risk <= 0 {
		return reject("invalid_stop_distance", nil)
	}
	rr := reward / risk
	if rr < ec.Thresholds.MinRiskReward {
		return reject("risk_reward_below_threshold", map[string]float64{"risk_reward": rr})
	}
	return pass()
}

// 9. Strategy-specific rules keyed by base_kind.
func gateStrategySpecific(ec *EvalContext) GateResult {
	confidence := estimateConfidence(ec)
	vol := ec.Data.Volatility(ec.T, ec.SwingLookback*4)
	btcCorrelation := btcCorrelationFactor(ec)

	switch ec.Strategy.BaseKind {
	case domain.ConservativeML:
		if confidence < 0.8 || math.Abs(btcCorrelation) > 0.7 {
			return reject("conservative_ml_rules_failed", map[string]float64{"confidence": confidence, "btc_correlation": btcCorrelation})
		}
	case domain.AggressiveML:
		if vol < 0.03 || confidence < 0.6 {
			return reject("aggressive_ml_rules_failed", map[string]float64{"volatility": vol, "confidence": confidence})
		}
	case domain.AggressiveTraditional:
		if confidence < 0.5 {
			return reject("aggressive_traditional_rules_failed", map[string]float64{"confidence": confidence})
		}
	case domain.FullML:
		if confidence < 0.65 {
			return reject("full_ml_rules_failed", map[string]float64{"confidence": confidence})
		}
	case domain.Balanced:
		if confidence < 0.55 || vol > 0.15 {
			return reject("balanced_rules_failed", map[string]float64{"confidence": confidence, "volatility": vol})
		}
	}
	return pass()
}

// btcCorrelationFactor estimates return correlation with BTC over the
// swing-lookback window as of T, used by the Conservative_ML gate 9 rule
// and by decision-path step 4.
func btcCorrelationFactor(ec *EvalContext) float64 {
	own := ec.Data.AsOf(ec.T)
	btc := ec.Data.BTCAsOf(ec.T)
	n := ec.SwingLookback * 4
	if len(own) < n+1 || len(btc) < n+1 {
		return 0
	}
	own = own[len(own)-n-1:]
	btc = btc[len(btc)-n-1:]
	return correlation(returns(own), returns(btc))
}

func returns(candles []domain.Candle) []float64 {
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		if candles[i-1].Close == 0 {
			continue
		}
		out = append(out, (candles[i].Close-candles[i-1].Close)/candles[i-1].Close)
	}
	return out
}

func correlation(a, b []float64) float64 {
	n := len(a)
	if n > len(b) {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	a, b = a[:n], b[:n]

	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}
