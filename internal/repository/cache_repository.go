package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
)

// CacheRepository stores short-lived JSON documents in Redis under a key
// prefix. A repository without a client misses on every read.
type CacheRepository struct {
	client *redis.Client
	prefix string
}

// NewCacheRepository constructs a cache repository namespaced by prefix.
func NewCacheRepository(client *redis.Client, prefix string) *CacheRepository {
	return &CacheRepository{client: client, prefix: prefix}
}

// Namespace returns a repository sharing the client whose keys live under
// the current prefix followed by name and a colon.
func (r *CacheRepository) Namespace(name string) *CacheRepository {
	return &CacheRepository{client: r.client, prefix: r.key(name) + ":"}
}

// Prefix reports the key prefix applied to every operation.
func (r *CacheRepository) Prefix() string {
	return r.prefix
}

// Get unmarshals the document stored at key into dest. Absent keys return
// appErrors.ErrCacheMiss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("cache get %s: %w", r.key(key), err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode cached %s: %w", r.key(key), err)
	}
	return nil
}

// Set stores value as JSON. A zero ttl keeps the key until it is deleted.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return appErrors.Clone(appErrors.ErrUnavailable, "cache not configured")
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", r.key(key), err)
	}
	if err := r.client.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", r.key(key), err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", r.key(key), err)
	}
	return nil
}

// Increment atomically adds one to the counter at key and returns the new
// value. A positive ttl is applied in the same transaction.
func (r *CacheRepository) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if r.client == nil {
		return 0, appErrors.Clone(appErrors.ErrUnavailable, "cache not configured")
	}

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, r.key(key))
		if ttl > 0 {
			pipe.Expire(ctx, r.key(key), ttl)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache incr %s: %w", r.key(key), err)
	}
	return incr.Val(), nil
}

func (r *CacheRepository) key(name string) string {
	return r.prefix + name
}
