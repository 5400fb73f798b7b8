package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

const defaultJWKSTTL = time.Hour

type cachedSet struct {
	keys    jwk.Set
	expires time.Time
}

// KeyProvider returns the key set used to verify identity tokens
type KeyProvider interface {
	GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error)
}

// JWKSManager fetches JWKS documents and caches them per URL
type JWKSManager struct {
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedSet
}

// NewJWKSManager creates a manager with a one hour cache
func NewJWKSManager() *JWKSManager {
	return NewJWKSManagerWithClient(&http.Client{Timeout: 10 * time.Second}, defaultJWKSTTL)
}

// NewJWKSManagerWithClient creates a manager using client and ttl
func NewJWKSManagerWithClient(client *http.Client, ttl time.Duration) *JWKSManager {
	if ttl <= 0 {
		ttl = defaultJWKSTTL
	}
	return &JWKSManager{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]cachedSet),
	}
}

// GetJWKS returns the cached key set for jwksURL, refreshing it once expired
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.RLock()
	entry, ok := m.cache[jwksURL]
	m.mu.RUnlock()
	if ok && m.now().Before(entry.expires) {
		return entry.keys, nil
	}

	keys, err := m.fetchJWKS(ctx, jwksURL)
	if err != nil {
		if ok {
			// keep serving the stale set while the provider is unreachable
			return entry.keys, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	m.mu.Lock()
	m.cache[jwksURL] = cachedSet{keys: keys, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()

	return keys, nil
}

func (m *JWKSManager) fetchJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return keys, nil
}
