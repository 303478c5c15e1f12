package filterengine

import (
	"fmt"

	"binance-trading-bot/config"
	"binance-trading-bot/internal/domain"
)

// ResolvedThresholds is the per-task outcome of the four-level resolution
// chain of spec §4.3, computed once per task rather than per evaluation.
type ResolvedThresholds struct {
	MinLeverage           float64
	MinConfidence         float64
	MinRiskReward         float64
	MinSupportStrength    float64
	MinResistanceStrength float64
}

// Resolve walks user override -> strategy config -> timeframe config ->
// central defaults for every threshold field.
func Resolve(defaults config.CentralDefaults, userOverride *domain.FilterThresholds, strategyOverride domain.FilterThresholds, timeframeOverride domain.FilterThresholds) (ResolvedThresholds, error) {
	var user domain.FilterThresholds
	if userOverride != nil {
		user = *userOverride
	}

	minLeverage, err := defaults.ResolveThreshold("min_leverage", user.MinLeverage, strategyOverride.MinLeverage, timeframeOverride.MinLeverage)
	if err != nil {
		return ResolvedThresholds{}, fmt.Errorf("resolve min_leverage: %w", err)
	}
	minConfidence, err := defaults.ResolveThreshold("min_confidence", user.MinConfidence, strategyOverride.MinConfidence, timeframeOverride.MinConfidence)
	if err != nil {
		return ResolvedThresholds{}, fmt.Errorf("resolve min_confidence: %w", err)
	}
	minRiskReward, err := defaults.ResolveThreshold("min_risk_reward", user.MinRiskReward, strategyOverride.MinRiskReward, timeframeOverride.MinRiskReward)
	if err != nil {
		return ResolvedThresholds{}, fmt.Errorf("resolve min_risk_reward: %w", err)
	}
	minSupportStrength, err := defaults.ResolveThreshold("min_support_strength", user.MinSupportStrength, strategyOverride.MinSupportStrength, timeframeOverride.MinSupportStrength)
	if err != nil {
		return ResolvedThresholds{}, fmt.Errorf("resolve min_support_strength: %w", err)
	}
	minResistanceStrength, err := defaults.ResolveThreshold("min_resistance_strength", user.MinResistanceStrength, strategyOverride.MinResistanceStrength, timeframeOverride.MinResistanceStrength)
	if err != nil {
		return ResolvedThresholds{}, fmt.Errorf("resolve min_resistance_strength: %w", err)
	}

	return ResolvedThresholds{
		MinLeverage:           minLeverage,
		MinConfidence:         minConfidence,
		MinRiskReward:         minRiskReward,
		MinSupportStrength:    minSupportStrength,
		MinResistanceStrength: minResistanceStrength,
	}, nil
}

// FromOverrides maps the Submission API's nested override shape onto the
// flat FilterThresholds resolution struct.
func FromOverrides(o *domain.FilterParamOverrides) *domain.FilterThresholds {
	if o == nil {
		return nil
	}
	ft := &domain.FilterThresholds{}
	if o.EntryConditions != nil {
		ft.MinLeverage = o.EntryConditions.MinLeverage
		ft.MinConfidence = o.EntryConditions.MinConfidence
		ft.MinRiskReward = o.EntryConditions.MinRiskReward
	}
	if o.SupportResistance != nil {
		ft.MinSupportStrength = o.SupportResistance.MinSupportStrength
		ft.MinResistanceStrength = o.SupportResistance.MinResistanceStrength
	}
	return ft
}
