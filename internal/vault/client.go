// Package vault stores the one credential pair the onboarding pipeline
// needs at runtime: the active data-provider's API key/secret, addressed
// by provider identity ("hyperliquid" | "gateio"). It never holds
// per-user secrets — this service authenticates as itself to one
// provider, not on behalf of many end users.
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"

	"binance-trading-bot/config"
)

// ProviderCredentials is the secret payload for one provider identity.
type ProviderCredentials struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
}

// Client wraps the HashiCorp Vault client, falling back to an in-memory
// cache when Vault is disabled (local/dev runs), matching the teacher's
// enabled-flag-gated fallback shape.
type Client struct {
	client *api.Client
	config config.VaultConfig
	mu     sync.RWMutex
	cache  map[string]*ProviderCredentials
}

func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{config: cfg, cache: make(map[string]*ProviderCredentials)}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg, cache: make(map[string]*ProviderCredentials)}, nil
}

// StoreProviderCredentials writes a provider's credentials to Vault (or the
// in-memory cache when Vault is disabled) and refreshes the local cache.
func (c *Client) StoreProviderCredentials(ctx context.Context, provider string, creds ProviderCredentials) error {
	if !c.config.Enabled {
		c.mu.Lock()
		c.cache[provider] = &creds
		c.mu.Unlock()
		return nil
	}

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"api_key":    creds.APIKey,
			"secret_key": creds.SecretKey,
		},
	}
	if _, err := c.client.Logical().WriteWithContext(ctx, c.secretPath(provider), secretData); err != nil {
		return fmt.Errorf("failed to store provider credentials in vault: %w", err)
	}

	c.mu.Lock()
	c.cache[provider] = &creds
	c.mu.Unlock()
	return nil
}

// GetProviderCredentials resolves a provider's credentials, preferring the
// in-memory cache and falling back to Vault on a miss.
func (c *Client) GetProviderCredentials(ctx context.Context, provider string) (*ProviderCredentials, error) {
	c.mu.RLock()
	if cached, ok := c.cache[provider]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return nil, fmt.Errorf("no credentials cached for provider %q and vault is disabled", provider)
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.secretPath(provider))
	if err != nil {
		return nil, fmt.Errorf("failed to read provider credentials from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no credentials found for provider %q", provider)
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format for provider %q", provider)
	}

	creds := &ProviderCredentials{APIKey: getString(data, "api_key"), SecretKey: getString(data, "secret_key")}
	c.mu.Lock()
	c.cache[provider] = creds
	c.mu.Unlock()
	return creds, nil
}

// RotateProviderCredentials replaces a provider's stored credentials.
func (c *Client) RotateProviderCredentials(ctx context.Context, provider string, creds ProviderCredentials) error {
	return c.StoreProviderCredentials(ctx, provider, creds)
}

// InvalidateCache drops the in-memory credential cache, forcing the next
// read to go to Vault.
func (c *Client) InvalidateCache() {
	c.mu.Lock()
	c.cache = make(map[string]*ProviderCredentials)
	c.mu.Unlock()
}

func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	health, err := c.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

func (c *Client) secretPath(provider string) string {
	return fmt.Sprintf("%s/data/%s/%s", c.config.MountPath, c.config.SecretPath, provider)
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
