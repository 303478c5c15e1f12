package vault

import (
	"context"
	"testing"

	"binance-trading-bot/config"
)

func TestStoreAndGetProviderCredentialsDisabledVault(t *testing.T) {
	c, err := NewClient(config.VaultConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error constructing disabled client: %v", err)
	}

	creds := ProviderCredentials{APIKey: "key-1", SecretKey: "secret-1"}
	if err := c.StoreProviderCredentials(context.Background(), "hyperliquid", creds); err != nil {
		t.Fatalf("unexpected error storing credentials: %v", err)
	}

	got, err := c.GetProviderCredentials(context.Background(), "hyperliquid")
	if err != nil {
		t.Fatalf("unexpected error reading credentials: %v", err)
	}
	if got.APIKey != creds.APIKey || got.SecretKey != creds.SecretKey {
		t.Fatalf("expected credentials to round-trip, got %+v", got)
	}
}

func TestGetProviderCredentialsUncachedDisabledVaultErrors(t *testing.T) {
	c, _ := NewClient(config.VaultConfig{Enabled: false})
	if _, err := c.GetProviderCredentials(context.Background(), "gateio"); err == nil {
		t.Fatal("expected an error for an uncached provider with vault disabled")
	}
}

func TestInvalidateCacheClearsStoredCredentials(t *testing.T) {
	c, _ := NewClient(config.VaultConfig{Enabled: false})
	_ = c.StoreProviderCredentials(context.Background(), "hyperliquid", ProviderCredentials{APIKey: "k"})
	c.InvalidateCache()
	if _, err := c.GetProviderCredentials(context.Background(), "hyperliquid"); err == nil {
		t.Fatal("expected cache invalidation to drop previously stored credentials")
	}
}

func TestHealthDisabledVaultIsAlwaysHealthy(t *testing.T) {
	c, _ := NewClient(config.VaultConfig{Enabled: false})
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("expected disabled vault health check to pass, got %v", err)
	}
}
