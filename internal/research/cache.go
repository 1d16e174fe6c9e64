package research

import (
	"context"
	"sync"
	"time"

	"github.com/researchhub/research-hub/internal/core/domain"
)

const configCacheTTL = 5 * time.Minute

type cachedConfig struct {
	config    *domain.ServiceConfig
	expiresAt time.Time
}

// configCache memoizes service configuration lookups process-wide. Entries
// are value snapshots, safe to read concurrently.
type configCache struct {
	mu      sync.Mutex
	entries map[string]cachedConfig
	ttl     time.Duration
	load    func(ctx context.Context, key string) (*domain.ServiceConfig, error)
}

func newConfigCache(load func(ctx context.Context, key string) (*domain.ServiceConfig, error)) *configCache {
	return &configCache{
		entries: map[string]cachedConfig{},
		ttl:     configCacheTTL,
		load:    load,
	}
}

func (c *configCache) setTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}

func (c *configCache) Get(ctx context.Context, key string) (*domain.ServiceConfig, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.config, nil
	}

	cfg, err := c.load(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cachedConfig{config: cfg, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return cfg, nil
}
