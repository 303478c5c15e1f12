package decisionpath

import (
	"math"
	"time"

	"binance-trading-bot/internal/analysis"
	"binance-trading-bot/internal/domain"
	"binance-trading-bot/internal/filterengine"
)

// predict returns breakout and bounce probabilities for the current
// timepoint as an equal-weight blend of the nearest level's strength and
// volatility scaled against 5% (the filter engine's ML-confidence gate uses
// its own 0.6/0.4 weights and a 10% scale) — there is no trained model
// artifact to call into, so these probabilities are computed features
// rather than a learned prediction.
func predict(ec *filterengine.EvalContext) (breakout, bounce float64, ok bool) {
	window := ec.Data.AsOf(ec.T)
	if len(window) < ec.SwingLookback*2 {
		return 0, 0, false
	}
	supports, resistances := ec.Data.SupportResistance(ec.T, ec.SwingLookback)
	resistance, rok := nearestOf(resistances, ec.ReferencePrice)
	support, sok := nearestOf(supports, ec.ReferencePrice)
	vol := ec.Data.Volatility(ec.T, ec.SwingLookback*4)

	if rok {
		breakout = clamp01(0.5*resistance.Strength + 0.5*math.Min(1, vol/0.05))
	}
	if sok {
		bounce = clamp01(0.5*support.Strength + 0.5*(1-math.Min(1, vol/0.05)))
	}
	return breakout, bounce, true
}

// btcCorrelation estimates the correlation factor between the symbol's
// returns and BTC's over the swing-lookback window as-of T.
func btcCorrelation(ec *filterengine.EvalContext) float64 {
	own := ec.Data.AsOf(ec.T)
	btc := ec.Data.BTCAsOf(ec.T)
	n := ec.SwingLookback * 4
	if len(own) < n+1 || len(btc) < n+1 {
		return 0
	}
	own = own[len(own)-n-1:]
	btc = btc[len(btc)-n-1:]
	return pearson(seriesReturns(own), seriesReturns(btc))
}

func seriesReturns(candles []domain.Candle) []float64 {
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		if candles[i-1].Close == 0 {
			continue
		}
		out = append(out, (candles[i].Close-candles[i-1].Close)/candles[i-1].Close)
	}
	return out
}

func pearson(a, b []float64) float64 {
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

// marketContext classifies the prevailing trend and volatility regime as
// of T, and flags an anomaly when volatility has more than doubled over
// the trailing window — a crude but real signal, not a placeholder.
func marketContext(ec *filterengine.EvalContext) (trend analysis.TrendDirection, volatility float64, anomaly bool, ok bool) {
	window := ec.Data.AsOf(ec.T)
	if len(window) < ec.SwingLookback*2 {
		return "", 0, false, false
	}
	ta := analysis.NewTrendAnalyzer(ec.SwingLookback)
	structure := ta.AnalyzeStructure(window)
	trend = structure.Trend

	volatility = ec.Data.Volatility(ec.T, ec.SwingLookback*4)
	prior := ec.Data.Volatility(ec.T.Add(-1*time.Hour), ec.SwingLookback*4)
	anomaly = prior > 0 && volatility > prior*2

	return trend, volatility, anomaly, true
}

// combinedConfidence blends the ML prediction step's probabilities with
// the BTC correlation factor and the anomaly flag from market context
// into the final confidence score gating the leverage decision.
func combinedConfidence(breakout, bounce, btcCorrelation float64, anomaly bool) float64 {
	base := 0.5*breakout + 0.5*bounce
	base -= 0.2 * math.Abs(btcCorrelation)
	if anomaly {
		base -= 0.15
	}
	return clamp01(base)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
