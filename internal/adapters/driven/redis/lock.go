package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "docqa:lock:"

// unlockScript deletes the key only while it still holds our owner ID, so an
// expired lock re-acquired by another replica is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock serialises index builds of one document across replicas with SET NX PX
type Lock struct {
	client  *redis.Client
	ownerID string
}

// NewLock creates a lock owned by this process
func NewLock(client *redis.Client) *Lock {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return &Lock{
		client:  client,
		ownerID: fmt.Sprintf("%s/%d/%s", host, os.Getpid(), uuid.NewString()),
	}
}

func lockKey(name string) string {
	return lockPrefix + name
}

// Acquire takes the lock for ttl. It is not reentrant: a held lock reports
// false even to its owner.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(name), l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// Release drops the lock if this process still owns it
func (l *Lock) Release(ctx context.Context, name string) error {
	err := unlockScript.Run(ctx, l.client, []string{lockKey(name)}, l.ownerID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}

// Ping checks Redis is reachable
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID returns the value stored under held lock keys
func (l *Lock) OwnerID() string {
	return l.ownerID
}
