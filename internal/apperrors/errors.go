// Package apperrors defines the closed error taxonomy used across the
// onboarding pipeline. Every error kind carries enough structured context to
// generate a user-facing suggestion without re-deriving it at the call site.
package apperrors

import "fmt"

// ValidationError is raised when an early-fail check rejects a request.
// Propagation: surfaced to the caller; the execution ledger is marked
// failed and no task rows are created.
type ValidationError struct {
	Reason     string
	Suggestion string
	Metadata   map[string]interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// InsufficientMarketDataError is raised when market data is missing or below
// the minimum usable size at the point of use. Propagation: the owning
// worker marks its task failed; other tasks continue; the execution still
// finalizes normally.
type InsufficientMarketDataError struct {
	Symbol    string
	Timeframe string
	Detail    string
}

func (e *InsufficientMarketDataError) Error() string {
	return fmt.Sprintf("insufficient market data for %s/%s: %s", e.Symbol, e.Timeframe, e.Detail)
}

// InsufficientConfigurationError is raised when a required config key is
// missing and no central default exists. Propagation: fail-fast, the worker
// exits and the task is marked failed — this indicates a deployment bug.
type InsufficientConfigurationError struct {
	Key string
}

func (e *InsufficientConfigurationError) Error() string {
	return fmt.Sprintf("required configuration key %q has no value and no central default", e.Key)
}

// LeverageAnalysisError is raised when leverage computation cannot produce a
// safe value despite present inputs. Propagation: the evaluation records an
// early exit at stage "leverage_decision"; the task continues to the next
// timepoint.
type LeverageAnalysisError struct {
	Reason string
}

func (e *LeverageAnalysisError) Error() string {
	return fmt.Sprintf("leverage analysis failed: %s", e.Reason)
}

// CriticalAnalysisError is raised when a hard invariant is violated (e.g. an
// empty support/resistance set after gate 3 reported levels existed, or
// stop >= entry for a long). Propagation: the task fails; other tasks
// continue; the violation is logged with full context.
type CriticalAnalysisError struct {
	Invariant string
	Context   map[string]interface{}
}

func (e *CriticalAnalysisError) Error() string {
	return fmt.Sprintf("critical invariant violated: %s", e.Invariant)
}

// PriceConsistencyError is raised when |current - entry| / current exceeds
// 5% at evaluation time. Propagation: the evaluation is dropped and counted
// as early_exit(reason=price_consistency); it is not a task failure.
type PriceConsistencyError struct {
	ReferencePrice float64
	EntryPrice     float64
	DeviationPct   float64
}

func (e *PriceConsistencyError) Error() string {
	return fmt.Sprintf("price consistency violated: reference=%.8f entry=%.8f deviation=%.4f%%",
		e.ReferencePrice, e.EntryPrice, e.DeviationPct*100)
}

// Suggestion returns the actionable suggestion paired with a validation
// failure reason, per the closed early-fail reason enumeration.
func Suggestion(reason string) string {
	switch reason {
	case "symbol_not_found":
		return "verify the symbol is listed on the configured exchange"
	case "exchange_not_supported":
		return "choose one of the configured exchange providers"
	case "database_connection_failed":
		return "check ledger/analysis database connectivity and retry"
	case "api_timeout":
		return "retry later; the data provider did not respond in time"
	case "symbol_not_tradable":
		return "wait until the instrument is active with nonzero 24h volume"
	case "insufficient_liquidity":
		return "choose a more liquid instrument or widen the liquidity threshold"
	case "insufficient_resources":
		return "retry once host CPU, memory, and disk are below their limits"
	case "insufficient_data_quality":
		return "try again once recent-candle completeness improves"
	case "insufficient_historical_data":
		return "try again after the instrument has accumulated enough history"
	case "custom_rule_violation":
		return "review the configured custom validation rules"
	default:
		return "contact support with the execution_id for diagnosis"
	}
}
