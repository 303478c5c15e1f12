package recorder

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"binance-trading-bot/internal/domain"
)

func TestWinRateEmptyIsZero(t *testing.T) {
	if rate := winRate(nil); rate != 0 {
		t.Fatalf("expected 0 win rate with no signals, got %v", rate)
	}
}

func TestWinRateCountsPositiveRiskReward(t *testing.T) {
	signals := []domain.Signal{{RiskReward: 2.0}, {RiskReward: 0}, {RiskReward: 1.5}}
	rate := winRate(signals)
	want := float64(2) / float64(3) * 100
	if rate != want {
		t.Fatalf("expected %v win rate, got %v", want, rate)
	}
}

func TestAverageLeverage(t *testing.T) {
	signals := []domain.Signal{{Leverage: 4}, {Leverage: 6}}
	if avg := averageLeverage(signals); avg != 5 {
		t.Fatalf("expected average leverage 5, got %v", avg)
	}
}

func TestNewtonSqrtMatchesKnownSquares(t *testing.T) {
	if got := newtonSqrt(16); got < 3.999 || got > 4.001 {
		t.Fatalf("expected sqrt(16) ~= 4, got %v", got)
	}
	if got := newtonSqrt(0); got != 0 {
		t.Fatalf("expected sqrt(0) == 0, got %v", got)
	}
}

func TestSharpeRatioZeroVarianceIsZero(t *testing.T) {
	signals := []domain.Signal{{RiskReward: 2}, {RiskReward: 2}, {RiskReward: 2}}
	if sr := sharpeRatio(signals); sr != 0 {
		t.Fatalf("expected 0 sharpe ratio with zero variance, got %v", sr)
	}
}

func TestMaxDrawdownNonNegative(t *testing.T) {
	signals := []domain.Signal{{RiskReward: 2}, {RiskReward: 0.2}, {RiskReward: 3}}
	if dd := maxDrawdown(signals); dd < 0 {
		t.Fatalf("expected non-negative drawdown, got %v", dd)
	}
}

func TestCompressTradesRoundTrips(t *testing.T) {
	signals := []domain.Signal{{Leverage: 5, RiskReward: 2, StrategyTag: "Balanced"}}
	blob, err := compressTrades(signals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("expected a valid gzip stream: %v", err)
	}
	defer gz.Close()
	if _, err := io.ReadAll(gz); err != nil {
		t.Fatalf("expected the gzip stream to decompress cleanly: %v", err)
	}
}
