package kv

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"
)

// MemoryKV 基于 sync.Map 的内存 KV 实现，TTL 通过值包装实现惰性过期.
type MemoryKV struct {
	data sync.Map // 并发安全的 map
}

func newMemoryKV() *MemoryKV {
	return &MemoryKV{}
}

// NewMemoryKV 创建内存 KV 实例.
func NewMemoryKV(_ context.Context, _ any) (KVStore, error) {
	// 内存实现不需要特殊配置
	return newMemoryKV(), nil
}

// load 读取并处理过期，过期的键会被顺手删除.
func (m *MemoryKV) load(key string) ([]byte, bool, error) {
	value, exists := m.data.Load(key)
	if !exists {
		return nil, false, nil
	}

	raw, ok := value.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("invalid value type for key: %s", key)
	}

	v, expired, _, err := decodeWithTTL(raw, time.Now())
	if err != nil {
		return nil, false, err
	}

	if expired {
		m.data.CompareAndDelete(key, value)

		return nil, false, nil
	}

	return v, true, nil
}

// Get 获取键的值.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok, err := m.load(key)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	// 返回副本
	result := make([]byte, len(v))
	copy(result, v)

	return result, nil
}

// Set 设置键的值.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	enc, _, err := encodeWithTTL(data, ttl)
	if err != nil {
		return err
	}

	m.data.Store(key, enc)

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.data.Delete(key)

	return nil
}

// Exists 检查键是否存在.
func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok, err := m.load(key)

	return ok, err
}

// Keys 获取匹配 glob 模式的未过期键.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	keys := make([]string, 0)

	m.data.Range(func(key, _ any) bool {
		k, ok := key.(string)
		if !ok {
			return true
		}

		if matched, _ := path.Match(pattern, k); !matched {
			return true
		}

		if _, live, _ := m.load(k); live {
			keys = append(keys, k)
		}

		return true
	})

	sort.Strings(keys)

	return keys, nil
}

// Close 关闭存储（内存实现无需操作）.
func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
