package planner

import (
	"context"
	"testing"

	"binance-trading-bot/internal/domain"
)

func TestResolveStrategiesSelectiveRequiresIDs(t *testing.T) {
	p := &Planner{}
	_, err := p.resolveStrategies(context.Background(), domain.Execution{Mode: domain.ModeSelective})
	if err == nil {
		t.Fatal("expected error when selective mode has no selected_strategy_ids")
	}
}

func TestResolveStrategiesCustomRequiresIDs(t *testing.T) {
	p := &Planner{}
	_, err := p.resolveStrategies(context.Background(), domain.Execution{Mode: domain.ModeCustom})
	if err == nil {
		t.Fatal("expected error when custom mode has no selected_strategy_ids")
	}
}

func TestResolveStrategiesUnknownMode(t *testing.T) {
	p := &Planner{}
	_, err := p.resolveStrategies(context.Background(), domain.Execution{Mode: domain.Mode("bogus")})
	if err == nil {
		t.Fatal("expected error for an unrecognized mode")
	}
}
