package provider

import "testing"

func TestNewRejectsUnknownIdentity(t *testing.T) {
	if _, err := New("binance", "", ""); err == nil {
		t.Fatal("expected error for unrecognized provider identity")
	}
}

func TestNewAcceptsRecognizedIdentities(t *testing.T) {
	for _, id := range []string{IdentityHyperliquid, IdentityGateIO} {
		p, err := New(id, "", "")
		if err != nil {
			t.Fatalf("New(%q) returned error: %v", id, err)
		}
		if p.Identity() != id {
			t.Errorf("Identity() = %q, want %q", p.Identity(), id)
		}
	}
}

func TestHyperliquidSymbolAliasRoundTrips(t *testing.T) {
	p := NewHyperliquidProvider("", "")
	for _, canonical := range []string{"SHIB", "PEPE", "BTC"} {
		aliased := p.ToProviderSymbol(canonical)
		if got := p.FromProviderSymbol(aliased); got != canonical {
			t.Errorf("round trip failed for %s: got %s via %s", canonical, got, aliased)
		}
	}
}
