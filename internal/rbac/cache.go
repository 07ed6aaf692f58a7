package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// RoleCache stores resolved role names per principal with a time-to-live.
type RoleCache interface {
	Get(ctx context.Context, principalID string) ([]string, bool, error)
	Set(ctx context.Context, principalID string, roles []string, ttl time.Duration) error
	Delete(ctx context.Context, principalID string) error
}

type memoryEntry struct {
	roles     []string
	expiresAt time.Time
}

// MemoryCache is a size-bounded in-process RoleCache. Entries expire at their
// deadline regardless of read traffic.
type MemoryCache struct {
	entries *expirable.LRU[string, memoryEntry]
	clock   clockwork.Clock
}

// NewMemoryCache builds a MemoryCache holding at most size principals (0 means
// unbounded). maxTTL drives the background purge and should be the largest
// TTL passed to Set.
func NewMemoryCache(size int, maxTTL time.Duration, clock clockwork.Clock) *MemoryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryCache{
		entries: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		clock:   clock,
	}
}

// Get returns the cached roles if present and not expired.
func (c *MemoryCache) Get(_ context.Context, principalID string) ([]string, bool, error) {
	entry, ok := c.entries.Get(principalID)
	if !ok {
		return nil, false, nil
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		c.entries.Remove(principalID)
		return nil, false, nil
	}
	return append([]string(nil), entry.roles...), true, nil
}

// Set stores roles until now+ttl. A non-positive ttl is a no-op.
func (c *MemoryCache) Set(_ context.Context, principalID string, roles []string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.entries.Add(principalID, memoryEntry{
		roles:     append([]string(nil), roles...),
		expiresAt: c.clock.Now().Add(ttl),
	})
	return nil
}

// Delete drops the entry for principalID.
func (c *MemoryCache) Delete(_ context.Context, principalID string) error {
	c.entries.Remove(principalID)
	return nil
}

// Len reports the number of live and not-yet-purged entries.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}

const redisKeyPrefix = "rbac:roles:"

// RedisCache shares resolved roles between processes. Expiry is delegated to
// Redis key TTLs.
type RedisCache struct {
	client redis.Cmdable
}

// NewRedisCache wraps a Redis client.
func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

func redisKey(principalID string) string {
	return redisKeyPrefix + principalID
}

// Get loads the cached roles.
func (c *RedisCache) Get(ctx context.Context, principalID string) ([]string, bool, error) {
	payload, err := c.client.Get(ctx, redisKey(principalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: role cache get: %w", shared.ErrDependency, err)
	}
	var roles []string
	if err := json.Unmarshal(payload, &roles); err != nil {
		return nil, false, fmt.Errorf("role cache decode: %w", err)
	}
	return roles, true, nil
}

// Set stores roles with the given ttl.
func (c *RedisCache) Set(ctx context.Context, principalID string, roles []string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if roles == nil {
		roles = []string{}
	}
	payload, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("role cache encode: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(principalID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: role cache set: %w", shared.ErrDependency, err)
	}
	return nil
}

// Delete removes the cached roles.
func (c *RedisCache) Delete(ctx context.Context, principalID string) error {
	if err := c.client.Del(ctx, redisKey(principalID)).Err(); err != nil {
		return fmt.Errorf("%w: role cache delete: %w", shared.ErrDependency, err)
	}
	return nil
}
