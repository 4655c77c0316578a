package configs

import "github.com/spf13/viper"

const (
	// 默认登录限流：每个 IP 每 5 秒 1 次，允许突发 5 次.
	DefaultRateLimitEnabled = true
	DefaultRateLimitRPS     = 0.2
	DefaultRateLimitBurst   = 5
	DefaultRateLimitKey     = "ip"
)

// RateLimitConfig 速率限制配置，作用于登录接口.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"min=0"` // 每秒允许的请求数
	Burst   int     `mapstructure:"burst" rule:"min=0"` // 突发容量
	// Key 选择限流维度：global（全局）、ip（按客户端IP）、header:Header-Name（按请求头）
	Key string `mapstructure:"key"`
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.key", DefaultRateLimitKey)
}
