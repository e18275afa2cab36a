package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/libinstruct/lir-api/pkg/errors"
)

// CacheRepository wraps Redis for short-lived read caches: per-actor bucket
// counts and the catalog lists. All methods degrade to a cache miss on
// marshal problems so callers fall through to the database.
type CacheRepository struct {
	client *redis.Client
}

// NewCacheRepository constructs the repository.
func NewCacheRepository(client *redis.Client) *CacheRepository {
	return &CacheRepository{client: client}
}

const (
	bucketCountPrefix = "lir:bucket-counts:"
	catalogPrefix     = "lir:catalog:"
)

// GetJSON reads a cached JSON value into dest. Returns ErrCacheMiss when the
// key is absent.
func (r *CacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return apperrors.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return apperrors.ErrCacheMiss
	}
	return nil
}

// SetJSON stores a JSON-encoded value with a TTL.
func (r *CacheRepository) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys, ignoring missing ones.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// DeleteByPattern removes all keys matching a glob pattern via SCAN.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", pattern, err)
	}
	return r.Delete(ctx, keys...)
}

// BucketCountKey names the per-actor bucket count cache entry.
func BucketCountKey(actorID string) string {
	return bucketCountPrefix + actorID
}

// CatalogKey names one cached catalog list.
func CatalogKey(kind string) string {
	return catalogPrefix + kind
}

// BucketCountPattern matches every cached bucket count entry.
func BucketCountPattern() string {
	return bucketCountPrefix + "*"
}
