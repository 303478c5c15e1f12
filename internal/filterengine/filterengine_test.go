package filterengine

import (
	"testing"
	"time"

	"binance-trading-bot/internal/domain"
)

func candle(t time.Time, o, h, l, c, v float64) domain.Candle {
	return domain.Candle{OpenTime: t, Open: o, High: h, Low: l, Close: c, Volume: v, CloseTime: t.Add(time.Hour)}
}

func TestPreparedDataAsOfExcludesFuture(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []domain.Candle{
		candle(base, 1, 1, 1, 1, 10),
		candle(base.Add(time.Hour), 2, 2, 2, 2, 10),
		candle(base.Add(2*time.Hour), 3, 3, 3, 3, 10),
	}
	pd := NewPreparedData("BTC", candles, nil)

	window := pd.AsOf(base.Add(time.Hour))
	if len(window) != 2 {
		t.Fatalf("expected 2 candles as-of T, got %d", len(window))
	}
	for _, c := range window {
		if c.OpenTime.After(base.Add(time.Hour)) {
			t.Fatal("as-of window leaked a future candle")
		}
	}
}

func TestCandleAtReturnsOpenNotClose(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []domain.Candle{candle(base, 10, 12, 9, 11, 5)}
	pd := NewPreparedData("BTC", candles, nil)

	c, ok := pd.CandleAt(base)
	if !ok {
		t.Fatal("expected candle at base time to be found")
	}
	if c.Open != 10 {
		t.Fatalf("expected open 10, got %v", c.Open)
	}
}

func TestBuildGridNeverStartsBeforeAvailableData(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	earliest := now.AddDate(0, 0, -10) // only 10 days of history available
	grid := BuildGrid(now, 90, time.Hour, 1.0, 0, earliest)

	if len(grid.Timepoints) == 0 {
		t.Fatal("expected a non-empty grid")
	}
	if grid.Timepoints[0].Before(earliest) {
		t.Fatalf("grid fabricated a timestamp before available data: %v < %v", grid.Timepoints[0], earliest)
	}
}

func TestBuildGridAppliesCoverageAndCap(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	earliest := now.AddDate(0, 0, -90)
	grid := BuildGrid(now, 90, time.Hour, 0.5, 10, earliest)

	if len(grid.Timepoints) != 10 {
		t.Fatalf("expected the absolute cap of 10 to bind, got %d", len(grid.Timepoints))
	}
}

func TestRunChainStopsAtFirstReject(t *testing.T) {
	calls := 0
	gates := []Gate{
		func(ec *EvalContext) GateResult { calls++; return pass() },
		func(ec *EvalContext) GateResult { calls++; return reject("stub_reject", nil) },
		func(ec *EvalContext) GateResult { calls++; return pass() },
	}
	orig := Gates
	Gates = gates
	defer func() { Gates = orig }()

	outcome := RunChain(&EvalContext{})
	if outcome.GatePassed {
		t.Fatal("expected the chain to reject")
	}
	if outcome.RejectGate != 2 {
		t.Fatalf("expected reject at gate 2, got %d", outcome.RejectGate)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 gates evaluated before short-circuit, got %d", calls)
	}
}

func TestClusterLevelsStrengthIsRelative(t *testing.T) {
	prices := []float64{100, 100.1, 100.2, 200, 200.1}
	levels := clusterLevels(prices)
	if len(levels) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(levels))
	}
	var strongest Level
	for _, l := range levels {
		if l.Strength > strongest.Strength {
			strongest = l
		}
	}
	if strongest.Strength != 1.0 {
		t.Fatalf("expected the largest cluster to score strength 1.0, got %v", strongest.Strength)
	}
}

func TestSafeLeverageScalesWithVolatility(t *testing.T) {
	support := Level{Price: 95, Strength: 0.8}
	resistance := Level{Price: 110, Strength: 0.8}

	low := SafeLeverage(100, support, resistance, 0.01, 0)
	high := SafeLeverage(100, support, resistance, 0.09, 0)

	if !(low > high) {
		t.Fatalf("expected lower volatility to allow higher leverage: low=%v high=%v", low, high)
	}
}

func TestStopLossBelowEntryAndTakeProfitAbove(t *testing.T) {
	support := Level{Price: 95, Strength: 0.6}
	resistance := Level{Price: 110, Strength: 0.6}
	entry := 100.0

	sl := StopLossForLong(entry, support, 5)
	tp := TakeProfitForLong(entry, resistance, 0.3)

	if !(sl < entry) {
		t.Fatalf("expected stop loss below entry, got %v", sl)
	}
	if !(tp > entry) {
		t.Fatalf("expected take profit above entry, got %v", tp)
	}
}

func TestFilteringEfficiencyZeroCandidates(t *testing.T) {
	if eff := FilteringEfficiency(5, 0); eff != 0 {
		t.Fatalf("expected 0 efficiency with no candidates, got %v", eff)
	}
}
