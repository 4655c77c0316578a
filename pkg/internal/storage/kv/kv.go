// Package kv 提供用于列表缓存的键值存储接口和实现.
package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yeisme/mediavault/pkg/configs"
)

// ErrNotFound 键不存在或已过期.
var ErrNotFound = errors.New("key not found")

// Client 包装具体的 KVStore.
type Client struct {
	KVStore
	kvType KVType
}

// KVStore 定义键值存储接口.
type KVStore interface {
	// Get 获取键的值，不存在时返回 ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 设置键的值，ttl<=0 表示永不过期.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete 删除键.
	Delete(ctx context.Context, key string) error
	// Exists 检查键是否存在.
	Exists(ctx context.Context, key string) (bool, error)
	// Keys 获取匹配 glob 模式的键，空模式表示全部.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Close 关闭存储连接.
	Close() error
}

// KVType 键值存储类型.
type KVType string

const (
	KVTypeMemory KVType = "memory"
	KVTypeRedis  KVType = "redis"
)

// KVFactory 定义创建 KVStore 的工厂函数类型.
type KVFactory func(ctx context.Context, config any) (KVStore, error)

// kvFactories 存储 KV 类型到工厂的映射.
var kvFactories = make(map[KVType]KVFactory)

// RegisterKVFactory 注册 KV 工厂函数.
func RegisterKVFactory(kvType KVType, factory KVFactory) {
	kvFactories[kvType] = factory
}

// GetRegisteredKVTypes 返回已注册的 KV 类型列表（有序）.
func GetRegisteredKVTypes() []KVType {
	types := make([]KVType, 0, len(kvFactories))
	for kvType := range kvFactories {
		types = append(types, kvType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// NewKVStore 根据类型创建 KVStore 实例.
func NewKVStore(ctx context.Context, kvType KVType, config any) (KVStore, error) {
	factory, exists := kvFactories[kvType]
	if !exists {
		return nil, fmt.Errorf("unsupported KV type: %s", kvType)
	}

	return factory(ctx, config)
}

// New 按配置创建客户端.
func New(ctx context.Context, cfg *configs.KVConfig) (*Client, error) {
	kvType := KVType(cfg.GetKVType())
	if kvType == "" {
		kvType = KVTypeMemory
	}

	var sub any

	if kvType == KVTypeRedis {
		sub = &cfg.Redis
	}

	store, err := NewKVStore(ctx, kvType, sub)
	if err != nil {
		return nil, err
	}

	return &Client{KVStore: store, kvType: kvType}, nil
}

// NewMemoryClient 创建内存客户端，主要用于测试与单机部署.
func NewMemoryClient() *Client {
	return &Client{KVStore: newMemoryKV(), kvType: KVTypeMemory}
}

// Type 返回存储类型.
func (c *Client) Type() KVType {
	return c.kvType
}

// HealthCheck 通过一次读写检查存储可用性.
func (c *Client) HealthCheck(ctx context.Context) error {
	const probe = "health:probe"

	if err := c.Set(ctx, probe, []byte("ok"), time.Minute); err != nil {
		return err
	}

	_, err := c.Get(ctx, probe)

	return err
}
