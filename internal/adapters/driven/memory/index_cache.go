package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IndexCache = (*IndexCache)(nil)

// CacheConfig holds in-process cache settings
type CacheConfig struct {
	// Capacity is the maximum number of snapshots kept
	Capacity int

	// TTL is how long a snapshot stays valid after publication
	TTL time.Duration
}

// DefaultCacheConfig returns sensible defaults
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Capacity: 32,
		TTL:      time.Hour,
	}
}

type cacheEntry struct {
	snap      *domain.IndexSnapshot
	expiresAt time.Time
}

// IndexCache is a bounded LRU of index snapshots with per-entry expiry
type IndexCache struct {
	mu    sync.Mutex
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewIndexCache creates a new in-process snapshot cache
func NewIndexCache(cfg CacheConfig) (*IndexCache, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCacheConfig().Capacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheConfig().TTL
	}

	cache, err := lru.New(cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}

	return &IndexCache{
		cache: cache,
		ttl:   cfg.TTL,
		now:   time.Now,
	}, nil
}

// Get returns the snapshot for key, or domain.ErrNotFound
func (c *IndexCache) Get(ctx context.Context, key string) (*domain.IndexSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, ok := c.lookup(key)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return snap, nil
}

// Put publishes snap under key unless a live entry already exists
func (c *IndexCache) Put(ctx context.Context, key string, snap *domain.IndexSnapshot) (bool, error) {
	if !snap.Valid() {
		return false, fmt.Errorf("%w: snapshot is incomplete", domain.ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup(key); ok {
		return false, nil
	}
	c.cache.Add(key, cacheEntry{snap: snap, expiresAt: c.now().Add(c.ttl)})
	return true, nil
}

// Name returns "memory"
func (c *IndexCache) Name() string {
	return BackendName
}

// Len returns the number of cached entries, expired ones included
func (c *IndexCache) Len() int {
	return c.cache.Len()
}

// lookup must be called with mu held
func (c *IndexCache) lookup(key string) (*domain.IndexSnapshot, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(cacheEntry)
	if !c.now().Before(e.expiresAt) {
		c.cache.Remove(key)
		return nil, false
	}
	return e.snap, true
}
