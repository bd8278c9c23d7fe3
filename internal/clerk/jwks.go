package clerk

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"go.uber.org/zap"
)

// minRefreshInterval bounds how often an unknown kid can trigger a refetch.
const minRefreshInterval = 10 * time.Second

// JWKSCache fetches and caches the RSA keys published at a JWKS endpoint.
type JWKSCache struct {
	url       string
	secretKey string
	ttl       time.Duration
	client    *http.Client
	logger    *zap.Logger

	mu         sync.Mutex
	keys       map[string]*rsa.PublicKey
	fetchedAt  time.Time
	retryAfter time.Time
	now        func() time.Time
}

// NewJWKSCache creates a cache. Keys are fetched lazily on first use.
func NewJWKSCache(url, secretKey string, ttl time.Duration, client *http.Client, logger *zap.Logger) *JWKSCache {
	if client == nil {
		client = http.DefaultClient
	}
	return &JWKSCache{
		url:       url,
		secretKey: secretKey,
		ttl:       ttl,
		client:    client,
		logger:    logger,
		now:       time.Now,
	}
}

// Key returns the key for kid, refreshing when the cache is stale or the kid
// is unknown. An empty kid matches the only key when exactly one is published.
// When a refresh fails, keys already cached keep being served and the fetch
// is retried after minRefreshInterval.
func (c *JWKSCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stale := c.keys == nil || now.Sub(c.fetchedAt) > c.ttl
	backingOff := now.Before(c.retryAfter)
	if !stale || backingOff {
		if key, ok := c.lookup(kid); ok {
			return key, nil
		}
		if backingOff || now.Sub(c.fetchedAt) < minRefreshInterval {
			return nil, fmt.Errorf("%w (kid %q)", ErrUnknownKey, kid)
		}
	}

	if err := c.refresh(ctx); err != nil {
		if key, ok := c.lookup(kid); ok {
			c.retryAfter = now.Add(minRefreshInterval)
			c.logger.Warn("JWKS refresh failed; serving cached key", zap.String("kid", kid), zap.Error(err))
			return key, nil
		}
		return nil, err
	}
	if key, ok := c.lookup(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w (kid %q)", ErrUnknownKey, kid)
}

func (c *JWKSCache) lookup(kid string) (*rsa.PublicKey, bool) {
	if kid == "" && len(c.keys) == 1 {
		for _, k := range c.keys {
			return k, true
		}
	}
	key, ok := c.keys[kid]
	return key, ok
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build JWKS request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch JWKS: unexpected status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		rsaKey, ok := k.Key.(*rsa.PublicKey)
		if !ok {
			continue
		}
		keys[k.KeyID] = rsaKey
	}

	c.keys = keys
	c.fetchedAt = c.now()
	c.logger.Debug("JWKS refreshed", zap.Int("keys", len(keys)))
	return nil
}
