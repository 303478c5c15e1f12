// Package provider defines the pluggable market-data contract the core
// pipeline depends on, plus the two recognized provider identities. The
// provider is never chosen implicitly or swapped on error — selection is a
// one-time, explicit field on the execution request.
package provider

import (
	"context"
	"fmt"
	"time"

	"binance-trading-bot/internal/domain"
)

// MarketInfo is the instrument metadata needed by the Early-Fail Validator.
type MarketInfo struct {
	IsActive     bool
	Volume24h    float64
	MinOrderSize float64
}

// DataProvider is the contract every exchange adapter must satisfy.
// GetCurrentPrice is usable only in real-time mode; the analysis path never
// calls it, since backtest evaluation must use only historical opens.
type DataProvider interface {
	Identity() string
	GetMarketInfo(ctx context.Context, symbol string) (MarketInfo, error)
	GetOHLCV(ctx context.Context, symbol string, tf domain.Timeframe, start, end time.Time) ([]domain.Candle, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Recognized provider identities. Switching between them is an explicit
// user/config action (see config.ProviderConfig.Identity) and is validated
// at startup — there is no fallback or auto-detection.
const (
	IdentityHyperliquid = "hyperliquid"
	IdentityGateIO      = "gateio"
)

// New constructs the adapter matching identity. Any other identity returns
// a plain configuration error, not silently coerced to a default provider.
func New(identity, baseURL, apiKey string) (DataProvider, error) {
	switch identity {
	case IdentityHyperliquid:
		return NewHyperliquidProvider(baseURL, apiKey), nil
	case IdentityGateIO:
		return NewGateIOProvider(baseURL, apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider identity %q", identity)
	}
}
