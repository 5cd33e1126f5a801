// Package vault stores broker and data-provider credentials in HashiCorp
// Vault. With Vault disabled the client keeps credentials in process memory,
// which is enough for development and paper trading.
package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/config"
)

// CredentialData is one broker API key pair, scoped to paper or live mode
type CredentialData struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Broker    string `json:"broker"`
	IsPaper   bool   `json:"is_paper"`
}

// Client reads and writes credentials in Vault's KV v2 engine, with a local
// cache keyed by account, broker, and trading mode.
type Client struct {
	client *api.Client
	config config.VaultConfig

	mu           sync.RWMutex
	cache        map[string]*CredentialData
	cacheEnabled bool
}

// NewClient creates a Vault client. When cfg.Enabled is false the returned
// client is cache-only and never talks to a server.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	c := &Client{
		config:       cfg,
		cache:        make(map[string]*CredentialData),
		cacheEnabled: true,
	}
	if !cfg.Enabled {
		return c, nil
	}

	vaultCfg := api.DefaultConfig()
	vaultCfg.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		if err := vaultCfg.ConfigureTLS(&api.TLSConfig{CACert: cfg.CACert}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	apiClient, err := api.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	apiClient.SetToken(cfg.Token)

	c.client = apiClient
	return c, nil
}

// NewMockClient returns a cache-only client for tests
func NewMockClient() *Client {
	return &Client{
		config:       config.VaultConfig{Enabled: false},
		cache:        make(map[string]*CredentialData),
		cacheEnabled: true,
	}
}

// StoreCredentials writes credentials for an account, keyed by broker and mode
func (c *Client) StoreCredentials(ctx context.Context, accountID string, data CredentialData) error {
	key := c.cacheKey(accountID, data.Broker, data.IsPaper)

	if !c.config.Enabled {
		c.mu.Lock()
		c.cache[key] = &data
		c.mu.Unlock()
		return nil
	}

	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"api_key":    data.APIKey,
			"api_secret": data.APISecret,
			"broker":     data.Broker,
			"is_paper":   data.IsPaper,
		},
	}
	if _, err := c.client.Logical().WriteWithContext(ctx, c.secretPath(accountID, data.Broker, data.IsPaper), payload); err != nil {
		return fmt.Errorf("failed to store credentials in vault: %w", err)
	}

	if c.cacheEnabled {
		c.mu.Lock()
		c.cache[key] = &data
		c.mu.Unlock()
	}
	return nil
}

// GetCredentials retrieves credentials for an account, serving from the
// cache when possible.
func (c *Client) GetCredentials(ctx context.Context, accountID, brokerName string, isPaper bool) (*CredentialData, error) {
	key := c.cacheKey(accountID, brokerName, isPaper)

	if c.cacheEnabled {
		c.mu.RLock()
		cached, ok := c.cache[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}
	}

	if !c.config.Enabled {
		return nil, fmt.Errorf("credentials not found and vault is disabled")
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.secretPath(accountID, brokerName, isPaper))
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("credentials not found")
	}

	inner, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format")
	}

	creds := &CredentialData{
		APIKey:    fieldString(inner, "api_key"),
		APISecret: fieldString(inner, "api_secret"),
		Broker:    fieldString(inner, "broker"),
		IsPaper:   fieldBool(inner, "is_paper"),
	}

	if c.cacheEnabled {
		c.mu.Lock()
		c.cache[key] = creds
		c.mu.Unlock()
	}
	return creds, nil
}

// DeleteCredentials removes credentials for one account/broker/mode
func (c *Client) DeleteCredentials(ctx context.Context, accountID, brokerName string, isPaper bool) error {
	c.mu.Lock()
	delete(c.cache, c.cacheKey(accountID, brokerName, isPaper))
	c.mu.Unlock()

	if !c.config.Enabled {
		return nil
	}

	if _, err := c.client.Logical().DeleteWithContext(ctx, c.metadataPath(accountID, brokerName, isPaper)); err != nil {
		return fmt.Errorf("failed to delete credentials from vault: %w", err)
	}
	return nil
}

// RotateCredentials replaces stored credentials in place
func (c *Client) RotateCredentials(ctx context.Context, accountID string, newData CredentialData) error {
	return c.StoreCredentials(ctx, accountID, newData)
}

// ClearCache drops every locally cached credential
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]*CredentialData)
	c.mu.Unlock()
}

// SetCacheEnabled toggles the local cache
func (c *Client) SetCacheEnabled(enabled bool) {
	c.mu.Lock()
	c.cacheEnabled = enabled
	c.mu.Unlock()
}

// IsEnabled reports whether a Vault server is configured
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// Health checks that the Vault server is reachable and unsealed
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

func (c *Client) secretPath(accountID, brokerName string, isPaper bool) string {
	return fmt.Sprintf("%s/data/%s/%s/%s_%s", c.config.MountPath, c.config.SecretPath, accountID, brokerName, mode(isPaper))
}

func (c *Client) metadataPath(accountID, brokerName string, isPaper bool) string {
	return fmt.Sprintf("%s/metadata/%s/%s/%s_%s", c.config.MountPath, c.config.SecretPath, accountID, brokerName, mode(isPaper))
}

func (c *Client) cacheKey(accountID, brokerName string, isPaper bool) string {
	return fmt.Sprintf("%s/%s_%s", accountID, brokerName, mode(isPaper))
}

func mode(isPaper bool) string {
	if isPaper {
		return "paper"
	}
	return "live"
}

func fieldString(data map[string]interface{}, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

func fieldBool(data map[string]interface{}, key string) bool {
	switch v := data[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	case json.Number:
		n, _ := v.Int64()
		return n != 0
	}
	return false
}
