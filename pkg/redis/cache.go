package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching on top of Client
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A missing key is reported as (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// DeletePrefix removes every cached key under the given key prefix.
// 새 피처 테이블이 생성되면 이전 run의 캐시를 비움
func (c *Cache) DeletePrefix(ctx context.Context, keyPrefix string) error {
	if !c.client.Enabled() {
		return nil
	}

	rdb := c.client.Redis()
	iter := rdb.Scan(ctx, 0, c.fullKey(keyPrefix)+"*", 200).Iterator()
	for iter.Next(ctx) {
		if err := rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache delete failed: %w", err)
		}
	}
	return iter.Err()
}

// GetOrSet retrieves from cache or calls fn to populate dest
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	found, err := c.Get(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	value, err := fn()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	if c.client.Enabled() {
		// 캐시 저장 실패는 조회 결과에 영향을 주지 않음
		_ = c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
	}

	return json.Unmarshal(data, dest)
}

// Predefined TTLs
const (
	TTLFeatures = 10 * time.Minute // 고객 피처 레코드
	TTLMetadata = 1 * time.Hour    // feature_info / run manifest
)

// CustomerFeaturesKey is the cache key of one customer's record within a run
func CustomerFeaturesKey(runID, customerID string) string {
	return fmt.Sprintf("features:%s:%s", runID, customerID)
}

// RunKeyPrefix covers every key cached for a run
func RunKeyPrefix(runID string) string {
	return fmt.Sprintf("features:%s:", runID)
}
