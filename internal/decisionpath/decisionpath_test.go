package decisionpath

import (
	"testing"
	"time"

	"binance-trading-bot/config"
	"binance-trading-bot/internal/domain"
	"binance-trading-bot/internal/filterengine"
)

func candle(t time.Time, o, h, l, c, v float64) domain.Candle {
	return domain.Candle{OpenTime: t, Open: o, High: h, Low: l, Close: c, Volume: v, CloseTime: t.Add(time.Hour)}
}

func buildSeries(base time.Time, n int, start float64) []domain.Candle {
	out := make([]domain.Candle, 0, n)
	price := start
	for i := 0; i < n; i++ {
		if (i/10)%2 == 0 {
			price += 0.4
		} else {
			price -= 0.4
		}
		out = append(out, candle(base.Add(time.Duration(i)*time.Hour), price, price+0.5, price-0.5, price+0.1, 1000))
	}
	return out
}

func noElapsed() func() int64 { return func() int64 { return 0 } }
func neverCancelled() bool     { return false }

func TestRunInsufficientDataExitsAtStage0(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := buildSeries(base, 3, 100)
	data := filterengine.NewPreparedData("BTC", candles, nil)
	ec := &filterengine.EvalContext{Data: data, T: candles[len(candles)-1].OpenTime, ReferencePrice: 100, SwingLookback: 5}

	res := Run(ec, config.CentralDefaults{PriceConsistencyPctMax: 0.05}, noElapsed(), neverCancelled)
	if !res.EarlyExit || res.ExitStage != "data_slice" || res.ExitReason != "insufficient_data" {
		t.Fatalf("expected data_slice/insufficient_data early exit, got %+v", res)
	}
}

func TestRunProducesTraceOfSixStages(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := buildSeries(base, 200, 100)
	btc := buildSeries(base, 200, 50)
	data := filterengine.NewPreparedData("ETH", candles, btc)
	ec := &filterengine.EvalContext{
		Data:           data,
		T:              candles[150].OpenTime,
		ReferencePrice: candles[150].Open,
		Strategy:       domain.Strategy{BaseKind: domain.Balanced, LeverageCap: 10},
		Thresholds:     filterengine.ResolvedThresholds{},
		SwingLookback:  5,
	}

	res := Run(ec, config.CentralDefaults{PriceConsistencyPctMax: 0.05}, noElapsed(), neverCancelled)

	if res.StageResults[0].Stage != "data_slice" || res.StageResults[5].Stage != "leverage_decision" {
		t.Fatalf("expected all 6 stages recorded in order, got %+v", res.StageResults)
	}
	if res.Completed && res.Recommendation != nil {
		sig := res.Recommendation
		if !(sig.StopLoss < sig.EntryPrice && sig.EntryPrice < sig.TakeProfit) {
			t.Fatalf("invariant violated: stop=%v entry=%v take=%v", sig.StopLoss, sig.EntryPrice, sig.TakeProfit)
		}
	}
}

func TestRunStopsAtCheckpointWhenCancelled(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := buildSeries(base, 200, 100)
	data := filterengine.NewPreparedData("ETH", candles, nil)
	ec := &filterengine.EvalContext{
		Data:           data,
		T:              candles[150].OpenTime,
		ReferencePrice: candles[150].Open,
		SwingLookback:  5,
	}

	res := Run(ec, config.CentralDefaults{PriceConsistencyPctMax: 0.05}, noElapsed(), func() bool { return true })
	if !res.Cancelled {
		t.Fatal("expected the run to stop at the first post-stage cancellation checkpoint")
	}
	if res.Completed || res.EarlyExit {
		t.Fatalf("a cancelled run must be neither completed nor early-exit, got %+v", res)
	}
}

func TestNearestOfEmptyReturnsNotFound(t *testing.T) {
	_, ok := nearestOf(nil, 100)
	if ok {
		t.Fatal("expected not-found on empty level set")
	}
}

func TestCheckInvariantsRejectsOutOfOrderPrices(t *testing.T) {
	sig := &domain.Signal{ReferencePrice: 100, EntryPrice: 100, StopLoss: 105, TakeProfit: 110}
	if err := checkInvariants(sig, config.CentralDefaults{PriceConsistencyPctMax: 0.05}); err == nil {
		t.Fatal("expected invariant violation when stop loss is above entry")
	}
}

func TestCheckInvariantsRejectsPriceDeviation(t *testing.T) {
	sig := &domain.Signal{ReferencePrice: 100, EntryPrice: 110, StopLoss: 90, TakeProfit: 120}
	if err := checkInvariants(sig, config.CentralDefaults{PriceConsistencyPctMax: 0.05}); err == nil {
		t.Fatal("expected invariant violation when entry deviates beyond the max pct")
	}
}

func TestCheckInvariantsPassesWithinBounds(t *testing.T) {
	sig := &domain.Signal{ReferencePrice: 100, EntryPrice: 101, StopLoss: 95, TakeProfit: 110}
	if err := checkInvariants(sig, config.CentralDefaults{PriceConsistencyPctMax: 0.05}); err != nil {
		t.Fatalf("expected no invariant violation, got %v", err)
	}
}
