// Package cache 提供基于键值存储的泛型缓存实现.
//
// 值使用 sonic 序列化为 JSON 存入 KV，TTL 交给底层存储处理.
// 画廊列表响应以 "gallery:" 为前缀缓存，文件变更后通过 DeletePrefix 整体失效；
// 占位探测结论以 "probe:" 为前缀，通过 GetOrSet 读写.
//
// 基本用法:
//
//	c := cache.NewCache(kvClient)
//	err := cache.Set(ctx, c, "gallery:image", resp, 30*time.Second)
//	resp, err := cache.Get[types.ListResponse](ctx, c, "gallery:image")
//	n, err := c.DeletePrefix(ctx, "gallery:")
//
// 缓存未命中返回 kv.ErrNotFound，可用 IsMiss 判断.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/mediavault/pkg/internal/storage/kv"
)

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore) *Cache {
	return &Cache{
		kvStore: kvStore,
	}
}

// IsMiss 判断错误是否为缓存未命中.
func IsMiss(err error) bool {
	return errors.Is(err, kv.ErrNotFound)
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, key, data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, key)
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, key)
}

// GetOrSet 获取缓存值，如果不存在则通过 getter 计算并写入；写入失败不影响返回.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	var zero T

	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	value, err := getter()
	if err != nil {
		return zero, err
	}

	_ = Set(ctx, c, key, value, ttl)

	return value, nil
}

// DeletePrefix 删除指定前缀的所有键，返回删除数量.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := c.kvStore.Keys(ctx, prefix+"*")
	if err != nil {
		return 0, err
	}

	n := 0

	for _, key := range keys {
		if err := c.kvStore.Delete(ctx, key); err != nil {
			return n, err
		}

		n++
	}

	return n, nil
}
