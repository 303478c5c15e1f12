package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"binance-trading-bot/internal/domain"
)

// HyperliquidProvider adapts the Hyperliquid perpetuals API to DataProvider.
// Grounded on internal/binance/client.go's plain net/http + encoding/json
// style — no exchange SDK is pulled in, matching the teacher's own choice
// not to depend on a Binance SDK either.
type HyperliquidProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHyperliquidProvider(baseURL, apiKey string) *HyperliquidProvider {
	if baseURL == "" {
		baseURL = "https://api.hyperliquid.xyz"
	}
	return &HyperliquidProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HyperliquidProvider) Identity() string { return IdentityHyperliquid }

// hlKPrefixed lists micro-contracts Hyperliquid lists under a "k"-prefixed
// symbol (1000x the underlying). Aliasing must round-trip: ToProviderSymbol
// followed by FromProviderSymbol returns the original ticker.
var hlKPrefixed = map[string]string{
	"SHIB": "kSHIB",
	"PEPE": "kPEPE",
	"BONK": "kBONK",
	"FLOKI": "kFLOKI",
}

// ToProviderSymbol maps a canonical ticker to the symbol Hyperliquid expects.
func (p *HyperliquidProvider) ToProviderSymbol(symbol string) string {
	if aliased, ok := hlKPrefixed[symbol]; ok {
		return aliased
	}
	return symbol
}

// FromProviderSymbol maps a Hyperliquid symbol back to the canonical ticker.
func (p *HyperliquidProvider) FromProviderSymbol(providerSymbol string) string {
	for canonical, aliased := range hlKPrefixed {
		if aliased == providerSymbol {
			return canonical
		}
	}
	return providerSymbol
}

type hlMarketInfo struct {
	IsActive     bool    `json:"isActive"`
	Volume24h    float64 `json:"dayNtlVlm,string"`
	MinOrderSize float64 `json:"minSize,string"`
}

func (p *HyperliquidProvider) GetMarketInfo(ctx context.Context, symbol string) (MarketInfo, error) {
	var raw hlMarketInfo
	if err := p.getJSON(ctx, fmt.Sprintf("/info/meta?coin=%s", url.QueryEscape(symbol)), &raw); err != nil {
		return MarketInfo{}, err
	}
	return MarketInfo{
		IsActive:     raw.IsActive,
		Volume24h:    raw.Volume24h,
		MinOrderSize: raw.MinOrderSize,
	}, nil
}

type hlCandle struct {
	OpenTimeMS  int64   `json:"t"`
	Open        float64 `json:"o,string"`
	High        float64 `json:"h,string"`
	Low         float64 `json:"l,string"`
	Close       float64 `json:"c,string"`
	Volume      float64 `json:"v,string"`
	CloseTimeMS int64   `json:"T"`
}

func (p *HyperliquidProvider) GetOHLCV(ctx context.Context, symbol string, tf domain.Timeframe, start, end time.Time) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("coin", symbol)
	q.Set("interval", string(tf))
	q.Set("startTime", strconv.FormatInt(start.UTC().UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UTC().UnixMilli(), 10))

	var raw []hlCandle
	if err := p.getJSON(ctx, "/info/candles?"+q.Encode(), &raw); err != nil {
		return nil, err
	}

	candles := make([]domain.Candle, 0, len(raw))
	for _, c := range raw {
		candles = append(candles, domain.Candle{
			OpenTime:  time.UnixMilli(c.OpenTimeMS).UTC(),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
			CloseTime: time.UnixMilli(c.CloseTimeMS).UTC(),
		})
	}
	return candles, nil
}

func (p *HyperliquidProvider) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var raw struct {
		Mid float64 `json:"mid,string"`
	}
	if err := p.getJSON(ctx, "/info/allMids?coin="+url.QueryEscape(symbol), &raw); err != nil {
		return 0, err
	}
	return raw.Mid, nil
}

func (p *HyperliquidProvider) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building hyperliquid request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hyperliquid request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading hyperliquid response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hyperliquid API error: %s", string(body))
	}
	return json.Unmarshal(body, out)
}
