package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IndexCache = (*IndexCache)(nil)

const snapshotPrefix = "docqa:snapshot:"

// IndexCache implements driven.IndexCache using Redis.
// Snapshots are published with SET NX and expire through Redis TTL.
type IndexCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIndexCache creates a new Redis-backed snapshot cache
func NewIndexCache(client *redis.Client, ttl time.Duration) *IndexCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &IndexCache{client: client, ttl: ttl}
}

// Get retrieves the snapshot stored under key
func (c *IndexCache) Get(ctx context.Context, key string) (*domain.IndexSnapshot, error) {
	data, err := c.client.Get(ctx, snapshotPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap domain.IndexSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if !snap.Valid() {
		return nil, domain.ErrNotFound
	}
	return &snap, nil
}

// Put publishes snap under key if no snapshot is stored there yet
func (c *IndexCache) Put(ctx context.Context, key string, snap *domain.IndexSnapshot) (bool, error) {
	if !snap.Valid() {
		return false, fmt.Errorf("%w: snapshot is incomplete", domain.ErrInvalidInput)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	stored, err := c.client.SetNX(ctx, snapshotPrefix+key, data, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to store snapshot: %w", err)
	}
	return stored, nil
}

// Name returns "redis"
func (c *IndexCache) Name() string {
	return "redis"
}

// Ping checks if Redis is reachable
func (c *IndexCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
