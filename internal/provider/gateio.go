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

// GateIOProvider adapts the Gate.io futures API to DataProvider. Same
// plain net/http shape as HyperliquidProvider and the teacher's binance
// client — no SDK dependency.
type GateIOProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGateIOProvider(baseURL, apiKey string) *GateIOProvider {
	if baseURL == "" {
		baseURL = "https://api.gateio.ws/api/v4"
	}
	return &GateIOProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *GateIOProvider) Identity() string { return IdentityGateIO }

type gateContract struct {
	InDelisting  bool    `json:"in_delisting"`
	TradeSize24h float64 `json:"trade_size_24h,string"`
	OrderSizeMin float64 `json:"order_size_min"`
}

func (p *GateIOProvider) GetMarketInfo(ctx context.Context, symbol string) (MarketInfo, error) {
	var raw gateContract
	if err := p.getJSON(ctx, "/futures/usdt/contracts/"+url.PathEscape(symbol)+"_USDT", &raw); err != nil {
		return MarketInfo{}, err
	}
	return MarketInfo{
		IsActive:     !raw.InDelisting,
		Volume24h:    raw.TradeSize24h,
		MinOrderSize: raw.OrderSizeMin,
	}, nil
}

type gateCandle struct {
	Timestamp int64   `json:"t"`
	Volume    float64 `json:"v"`
	Close     string  `json:"c"`
	High      string  `json:"h"`
	Low       string  `json:"l"`
	Open      string  `json:"o"`
}

func (p *GateIOProvider) GetOHLCV(ctx context.Context, symbol string, tf domain.Timeframe, start, end time.Time) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("contract", symbol+"_USDT")
	q.Set("interval", string(tf))
	q.Set("from", strconv.FormatInt(start.UTC().Unix(), 10))
	q.Set("to", strconv.FormatInt(end.UTC().Unix(), 10))

	var raw []gateCandle
	if err := p.getJSON(ctx, "/futures/usdt/candlesticks?"+q.Encode(), &raw); err != nil {
		return nil, err
	}

	candles := make([]domain.Candle, 0, len(raw))
	for _, c := range raw {
		open, _ := strconv.ParseFloat(c.Open, 64)
		high, _ := strconv.ParseFloat(c.High, 64)
		low, _ := strconv.ParseFloat(c.Low, 64)
		closePrice, _ := strconv.ParseFloat(c.Close, 64)
		openTime := time.Unix(c.Timestamp, 0).UTC()
		candles = append(candles, domain.Candle{
			OpenTime:  openTime,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    c.Volume,
			CloseTime: openTime.Add(timeframeDuration(tf)),
		})
	}
	return candles, nil
}

func (p *GateIOProvider) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var raw []struct {
		Last string `json:"last"`
	}
	if err := p.getJSON(ctx, "/futures/usdt/tickers?contract="+url.QueryEscape(symbol)+"_USDT", &raw); err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, fmt.Errorf("no ticker data for %s", symbol)
	}
	return strconv.ParseFloat(raw[0].Last, 64)
}

func (p *GateIOProvider) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building gateio request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("KEY", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateio request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading gateio response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateio API error: %s", string(body))
	}
	return json.Unmarshal(body, out)
}

func timeframeDuration(tf domain.Timeframe) time.Duration {
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
		return time.Minute
	}
}
