// Package cache 提供基于键值存储的泛型缓存实现.
//
// 值使用 sonic 序列化后写入 kv.KVStore，支持 TTL 与键命名空间；
// GetOrSet 对同一个键的并发未命中只调用一次 getter.
//
// 基本用法:
//
//	c := cache.NewCache(kvClient, cache.WithPrefix("status:"))
//
//	st, err := cache.GetOrSet(ctx, c, "ledger", func() (ledger.Status, error) {
//		return led.Status(ctx)
//	}, 5*time.Second)
//
// 缓存未命中返回 kv.ErrKeyNotFound（可用 errors.Is 判断），其他错误原样返回.
package cache

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/studiovault/pkg/internal/storage/kv"
)

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
	prefix  string
	group   singleflight.Group
}

// Option 配置 Cache.
type Option func(*Cache)

// WithPrefix 为所有键加上命名空间前缀，Clear 只清理该前缀下的键.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore, opts ...Option) *Cache {
	c := &Cache{kvStore: kvStore}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, c.key(key))
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值，ttl 为 0 表示不过期.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, c.key(key), data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, c.key(key))
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, c.key(key))
}

// GetOrSet 获取缓存值，未命中时调用 getter 并写回；写回失败不影响返回值.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	v, err, _ := c.group.Do(c.key(key), func() (any, error) {
		value, err := getter()
		if err != nil {
			return nil, err
		}

		_ = Set(ctx, c, key, value, ttl)

		return value, nil
	})
	if err != nil {
		var zero T

		return zero, err
	}

	return v.(T), nil
}

// Keys 返回命名空间下的全部键（含前缀），按字典序排列.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.kvStore.Keys(ctx, c.prefix+"*")
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)

	return keys, nil
}

// Clear 删除命名空间下的全部键并返回删除数量；未设置前缀时清空整个存储.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	keys, err := c.Keys(ctx)
	if err != nil {
		return 0, err
	}

	for i, key := range keys {
		if delErr := c.kvStore.Delete(ctx, key); delErr != nil {
			return i, delErr
		}
	}

	return len(keys), nil
}
