package validator

import (
	"context"
	"errors"
	"testing"

	"binance-trading-bot/config"
)

func TestCheckExchangeSupported(t *testing.T) {
	v := &Validator{cfg: config.ValidatorConfig{AllowedExchanges: []string{"hyperliquid", "gateio"}}}

	check := v.checkExchangeSupported("hyperliquid")
	if res := check(context.Background(), "BTC"); !res.Pass {
		t.Fatalf("expected hyperliquid to be supported, got reason %q", res.Reason)
	}

	check = v.checkExchangeSupported("binance")
	res := check(context.Background(), "BTC")
	if res.Pass {
		t.Fatal("expected binance to be rejected as unsupported")
	}
	if res.Reason != "exchange_not_supported" {
		t.Errorf("expected reason exchange_not_supported, got %q", res.Reason)
	}
	if res.Suggestion == "" {
		t.Error("expected a non-empty suggestion on failure")
	}
}

type stubRule struct {
	name string
	err  error
}

func (s stubRule) Name() string                                   { return s.name }
func (s stubRule) Check(ctx context.Context, symbol string) error { return s.err }

func TestCheckCustomRulesAllPass(t *testing.T) {
	v := &Validator{customRules: []CustomRule{stubRule{name: "r1"}, stubRule{name: "r2"}}}
	res := v.checkCustomRules(context.Background(), "BTC")
	if !res.Pass {
		t.Fatalf("expected pass, got reason %q", res.Reason)
	}
}

func TestCheckCustomRulesOneFails(t *testing.T) {
	v := &Validator{customRules: []CustomRule{stubRule{name: "r1"}, stubRule{name: "r2", err: errors.New("blocked")}}}
	res := v.checkCustomRules(context.Background(), "BTC")
	if res.Pass {
		t.Fatal("expected failure when a custom rule returns an error")
	}
	if res.Reason != "custom_rule_violation" {
		t.Errorf("expected custom_rule_violation, got %q", res.Reason)
	}
}

func TestCheckHostResourcesRejectsOverCPU(t *testing.T) {
	v := &Validator{
		cfg:         config.ValidatorConfig{MaxCPUPercent: 85, MaxMemPercent: 85, MinFreeDiskGiB: 2},
		resourceSrc: stubResourceSource{usage: ResourceUsage{CPUPercent: 90, MemPercent: 10, FreeDiskGiB: 100}},
	}
	res := v.checkHostResources(context.Background(), "BTC")
	if res.Pass {
		t.Fatal("expected rejection when CPU usage exceeds threshold")
	}
}

func TestCheckHostResourcesPassesWithinLimits(t *testing.T) {
	v := &Validator{
		cfg:         config.ValidatorConfig{MaxCPUPercent: 85, MaxMemPercent: 85, MinFreeDiskGiB: 2},
		resourceSrc: stubResourceSource{usage: ResourceUsage{CPUPercent: 10, MemPercent: 10, FreeDiskGiB: 100}},
	}
	res := v.checkHostResources(context.Background(), "BTC")
	if !res.Pass {
		t.Fatalf("expected pass, got reason %q", res.Reason)
	}
}

type stubResourceSource struct {
	usage ResourceUsage
	err   error
}

func (s stubResourceSource) Usage() (ResourceUsage, error) { return s.usage, s.err }
