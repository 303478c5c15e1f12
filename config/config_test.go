package config

import "testing"

func TestLoadAppliesCentralDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CentralDefaults.TargetCoverage != 0.80 {
		t.Errorf("expected default target_coverage 0.80, got %v", cfg.CentralDefaults.TargetCoverage)
	}
	if cfg.CentralDefaults.EvaluationCap != 5000 {
		t.Errorf("expected default evaluation cap 5000, got %v", cfg.CentralDefaults.EvaluationCap)
	}
	if cfg.ValidatorConfig.RequiredHistoryDays != 90 {
		t.Errorf("expected default required history days 90, got %v", cfg.ValidatorConfig.RequiredHistoryDays)
	}
	if cfg.ValidatorConfig.MinCompletenessPct != 95.0 {
		t.Errorf("expected default completeness 95.0, got %v", cfg.ValidatorConfig.MinCompletenessPct)
	}
}

func TestResolveThresholdChain(t *testing.T) {
	cd := CentralDefaults{MinRiskReward: 1.2}

	v, err := cd.ResolveThreshold("min_risk_reward", nil, nil, nil)
	if err != nil || v != 1.2 {
		t.Fatalf("expected fallback to central default 1.2, got %v err=%v", v, err)
	}

	userOverride := 2.0
	v, err = cd.ResolveThreshold("min_risk_reward", &userOverride, nil, nil)
	if err != nil || v != 2.0 {
		t.Fatalf("expected user override 2.0 to win, got %v err=%v", v, err)
	}

	strategyOverride := 1.5
	v, err = cd.ResolveThreshold("min_risk_reward", nil, &strategyOverride, nil)
	if err != nil || v != 1.5 {
		t.Fatalf("expected strategy override 1.5 to win over central default, got %v err=%v", v, err)
	}
}

func TestResolveThresholdUnknownField(t *testing.T) {
	cd := CentralDefaults{}
	if _, err := cd.ResolveThreshold("not_a_field"); err == nil {
		t.Fatal("expected error for unregistered threshold field")
	}
}
