package workerpool

import (
	"testing"

	"binance-trading-bot/config"
	"binance-trading-bot/internal/domain"
)

func TestDefaultTimeframeWindowsCoversEveryTimeframe(t *testing.T) {
	windows := DefaultTimeframeWindows()
	for _, tf := range domain.AllTimeframes {
		w, ok := windows[tf]
		if !ok {
			t.Fatalf("missing default window for timeframe %s", tf)
		}
		if w.WindowDays <= 0 {
			t.Fatalf("expected a positive window_days for %s, got %d", tf, w.WindowDays)
		}
	}
}

func TestNewClampsMaxWorkersToOne(t *testing.T) {
	pool := New(nil, nil, nil, nil, config.CentralDefaults{}, 0)
	if pool.maxWorkers != 1 {
		t.Fatalf("expected maxWorkers to clamp to 1, got %d", pool.maxWorkers)
	}
}
