package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var errCacheMiss = errors.New("cache miss")

const lookupKeyPrefix = "identity:uid:"

// Cache is the key/value surface the cached resolver uses.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type redisCache struct {
	client redis.Cmdable
}

// NewRedisCache adapts a go-redis client to Cache.
func NewRedisCache(client redis.Cmdable) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errCacheMiss
	}
	return v, err
}

func (c *redisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// CachedResolver serves Lookup from the cache when it can. Cache failures fall
// through to the underlying resolver; only positive lookups are cached.
type CachedResolver struct {
	next  Resolver
	cache Cache
	ttl   time.Duration
}

func NewCachedResolver(next Resolver, cache Cache, ttl time.Duration) *CachedResolver {
	return &CachedResolver{next: next, cache: cache, ttl: ttl}
}

func (c *CachedResolver) ResolveEmail(ctx context.Context, email string) (string, error) {
	return c.next.ResolveEmail(ctx, email)
}

func (c *CachedResolver) Lookup(ctx context.Context, uid string) (*Identity, error) {
	key := lookupKeyPrefix + uid
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var id Identity
		if json.Unmarshal([]byte(raw), &id) == nil && id.UID == uid {
			return &id, nil
		}
	}

	id, err := c.next.Lookup(ctx, uid)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(id); err == nil {
		_ = c.cache.Set(ctx, key, string(data), c.ttl)
	}
	return id, nil
}
