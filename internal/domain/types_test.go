package domain

import "testing"

func TestTaskKeyUniqueness(t *testing.T) {
	a := Task{ExecutionID: "exec_1", StrategyID: 3, Timeframe: Timeframe1h}
	b := Task{ExecutionID: "exec_1", StrategyID: 5, Timeframe: Timeframe1h}
	if a.Key() == b.Key() {
		t.Fatalf("expected distinct keys for distinct strategy ids, got %q for both", a.Key())
	}
}

func TestTaskKeyStable(t *testing.T) {
	a := Task{ExecutionID: "exec_1", StrategyID: 3, Timeframe: Timeframe1h}
	if a.Key() != a.Key() {
		t.Fatal("expected Key to be deterministic")
	}
}
