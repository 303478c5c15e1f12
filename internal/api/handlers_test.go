package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"binance-trading-bot/internal/domain"
	"binance-trading-bot/internal/workerpool"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	if !rl.Allow("/execution") {
		t.Fatal("expected first request to be allowed")
	}
	if !rl.Allow("/execution") {
		t.Fatal("expected second request to be allowed")
	}
	if rl.Allow("/execution") {
		t.Fatal("expected third request within the window to be rejected")
	}
}

func TestRateLimiterTracksKeysIndependently(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	if !rl.Allow("/execution") {
		t.Fatal("expected first key's request to be allowed")
	}
	if !rl.Allow("/execution/abc/cancel") {
		t.Fatal("expected a different key to have its own independent budget")
	}
}

func TestResolveWindowsNilPeriodReturnsDefaults(t *testing.T) {
	windows := resolveWindows(nil)
	defaults := workerpool.DefaultTimeframeWindows()
	if len(windows) != len(defaults) {
		t.Fatalf("expected %d timeframes, got %d", len(defaults), len(windows))
	}
}

func TestResolveWindowsCustomPeriodOverridesWindowDays(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)
	windows := resolveWindows(&periodOverride{Mode: "custom", StartDate: &start, EndDate: &end})
	w, ok := windows[domain.Timeframe1h]
	if !ok {
		t.Fatal("expected 1h timeframe in resolved windows")
	}
	if w.WindowDays != 10 {
		t.Fatalf("expected window_days 10, got %d", w.WindowDays)
	}
}

func TestResolveWindowsIgnoresSubOneDayCustomPeriod(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	windows := resolveWindows(&periodOverride{Mode: "custom", StartDate: &start, EndDate: &end})
	defaults := workerpool.DefaultTimeframeWindows()
	if windows[domain.Timeframe1h].WindowDays != defaults[domain.Timeframe1h].WindowDays {
		t.Fatal("expected a sub-one-day custom period to fall back to defaults")
	}
}

func TestErrorResponseWritesExpectedShape(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	errorResponse(c, http.StatusBadRequest, "bad request")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}
