package apperrors

import "testing"

func TestSuggestionCoversClosedEnum(t *testing.T) {
	reasons := []string{
		"symbol_not_found", "exchange_not_supported", "database_connection_failed",
		"api_timeout", "symbol_not_tradable", "insufficient_liquidity",
		"insufficient_resources", "insufficient_data_quality",
		"insufficient_historical_data", "custom_rule_violation",
	}
	for _, r := range reasons {
		t.Run(r, func(t *testing.T) {
			if s := Suggestion(r); s == "" {
				t.Fatalf("expected non-empty suggestion for reason %q", r)
			}
		})
	}
}

func TestSuggestionUnknownReasonFallsBack(t *testing.T) {
	if Suggestion("not_a_real_reason") == "" {
		t.Fatal("expected a fallback suggestion for unknown reasons")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Reason: "insufficient_historical_data", Suggestion: Suggestion("insufficient_historical_data")}
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
}

func TestPriceConsistencyErrorMessage(t *testing.T) {
	err := &PriceConsistencyError{ReferencePrice: 100, EntryPrice: 106, DeviationPct: 0.06}
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
}
