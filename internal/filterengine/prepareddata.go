// Package filterengine implements the Filtering Engine (spec §4.4): the
// nine-gate ordered chain applied at every evaluation timepoint of a task.
package filterengine

import (
	"sort"
	"time"

	"binance-trading-bot/internal/domain"
	"binance-trading-bot/internal/strategy"
)

// Level is one detected support or resistance level.
type Level struct {
	Price    float64
	Strength float64
}

// PreparedData caches everything a task's evaluations read, computed once
// per task rather than refetched per timepoint. Gates must read through
// AsOf rather than the raw Candles slice, so no gate can see data past its
// evaluation timestamp (spec §4.4's historical-data rule).
type PreparedData struct {
	Symbol  string
	Candles []domain.Candle // ascending by OpenTime
	BTC     []domain.Candle // ascending by OpenTime, same timeframe, may be nil
}

// NewPreparedData builds the cache from an ascending OHLCV series. Candles
// must already be sorted ascending by OpenTime; the caller's provider
// contract guarantees this.
func NewPreparedData(symbol string, candles, btc []domain.Candle) *PreparedData {
	return &PreparedData{Symbol: symbol, Candles: candles, BTC: btc}
}

// AsOf returns the prefix of candles with OpenTime <= t, using the
// strictly-ascending sort order to binary search in O(log n). This is the
// only read path gates and decision steps are allowed to use.
func (p *PreparedData) AsOf(t time.Time) []domain.Candle {
	return asOf(p.Candles, t)
}

// BTCAsOf mirrors AsOf for the BTC correlation series.
func (p *PreparedData) BTCAsOf(t time.Time) []domain.Candle {
	return asOf(p.BTC, t)
}

func asOf(candles []domain.Candle, t time.Time) []domain.Candle {
	idx := sort.Search(len(candles), func(i int) bool {
		return candles[i].OpenTime.After(t)
	})
	return candles[:idx]
}

// CandleAt returns the candle whose OpenTime equals t, if present. The
// reference price for evaluation at T is this candle's Open (spec §4.4's
// price rule) — never its Close, which would leak future information.
func (p *PreparedData) CandleAt(t time.Time) (domain.Candle, bool) {
	for i := len(p.Candles) - 1; i >= 0; i-- {
		if p.Candles[i].OpenTime.Equal(t) {
			return p.Candles[i], true
		}
		if p.Candles[i].OpenTime.Before(t) {
			break
		}
	}
	return domain.Candle{}, false
}

// SupportResistance returns support and resistance levels detected from
// candles strictly as-of t, adapting the teacher's swing-point structure
// analyzer to a flat list of leveled prices with a strength score derived
// from how many times a swing point's price band was retested.
func (p *PreparedData) SupportResistance(t time.Time, lookback int) (supports, resistances []Level) {
	return detectLevels(p.AsOf(t), lookback)
}

// Volatility returns the rolling volatility of closes strictly as-of t, in
// the same units the teacher's indicator package uses (fractional standard
// deviation of returns).
func (p *PreparedData) Volatility(t time.Time, period int) float64 {
	return strategy.CalculateVolatility(p.AsOf(t), period)
}
