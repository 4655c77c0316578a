package configs

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultListingTTL 列表响应缓存时间.
const DefaultListingTTL = 30 * time.Second

// KVConfig 键值存储配置，用于缓存画廊列表响应.
type KVConfig struct {
	Type       string        `mapstructure:"type"        rule:"oneof=memory redis"`
	Redis      RedisKVConfig `mapstructure:"redis"`
	ListingTTL time.Duration `mapstructure:"listing_ttl"`
}

// RedisKVConfig Redis KV 配置.
type RedisKVConfig struct {
	Addr     string `mapstructure:"addr"     rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

// GetKVType 返回当前配置的 KV 类型.
func (c *KVConfig) GetKVType() string {
	return c.Type
}

// GetListingTTL 列表缓存时间，未配置时使用默认值.
func (c *KVConfig) GetListingTTL() time.Duration {
	if c.ListingTTL <= 0 {
		return DefaultListingTTL
	}

	return c.ListingTTL
}

// setDefaults 设置 KV 配置的默认值.
func (c *KVConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("kv.type", "memory")
	v.SetDefault("kv.listing_ttl", DefaultListingTTL)

	// Redis 默认值
	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.password", "")
	v.SetDefault("kv.redis.db", 0)
}
