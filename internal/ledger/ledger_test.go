package ledger

import (
	"strings"
	"testing"
	"time"
)

func TestNewExecutionIDFormat(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	id := NewExecutionID("BTC", now)

	if !strings.HasPrefix(id, "btc_addition_") {
		t.Fatalf("expected id to start with btc_addition_, got %s", id)
	}
	parts := strings.Split(id, "_")
	if len(parts) != 4 {
		t.Fatalf("expected 4 underscore-separated parts, got %d (%s)", len(parts), id)
	}
	if len(parts[3]) != 8 {
		t.Fatalf("expected an 8-hex suffix, got %q", parts[3])
	}
}

func TestNewExecutionIDUnique(t *testing.T) {
	now := time.Now()
	a := NewExecutionID("ETH", now)
	b := NewExecutionID("ETH", now)
	if a == b {
		t.Fatal("expected distinct execution ids even for the same symbol and timestamp")
	}
}
