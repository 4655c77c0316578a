package configs

import (
	"time"

	"github.com/spf13/viper"
)

// StorageBackend 媒体文件存储后端类型.
type StorageBackend string

const (
	BackendLocal    StorageBackend = "local"
	BackendS3       StorageBackend = "s3"
	BackendSupabase StorageBackend = "supabase"
)

const (
	DefaultSignedURLExpiry  = 3600             // 列表中签名 URL 的有效期（秒）
	DefaultProxyURLExpiry   = 60               // 代理拉取时签名 URL 的有效期（秒）
	MaxProxyURLExpiry       = 60               // 代理签名 URL 有效期上限（秒）
	DefaultMaxUploadMB      = 50               // 单文件上传上限（MB）
	DefaultProbeThreshold   = 4096             // 小于该字节数的文件会被探测是否为外链占位
	DefaultProbeTimeout     = 3 * time.Second  // 单次探测超时
	DefaultProbeConcurrency = 8                // 列表解析并发上限
	DefaultLocalRoot        = "public/uploads" // 本地存储根目录
	DefaultLocalURLPrefix   = "/uploads"       // 本地文件静态访问前缀
)

// StorageConfig 媒体存储配置.
type StorageConfig struct {
	Backend          StorageBackend     `mapstructure:"backend"               rule:"oneof=local s3 supabase"`
	SignedURLExpiry  int                `mapstructure:"signed_url_expiry"     rule:"min=0"`
	ProxyURLExpiry   int                `mapstructure:"proxy_url_expiry"      rule:"min=0"`
	MaxUploadMB      int                `mapstructure:"max_upload_mb"         rule:"min=0"`
	ProbeThreshold   int64              `mapstructure:"probe_threshold_bytes" rule:"min=0"`
	ProbeTimeout     time.Duration      `mapstructure:"probe_timeout"`
	ProbeConcurrency int                `mapstructure:"probe_concurrency"     rule:"min=0,max=64"`
	Local            LocalStorageConfig `mapstructure:"local"`
	S3               S3Config           `mapstructure:"s3"`
	Supabase         SupabaseConfig     `mapstructure:"supabase"`
}

// LocalStorageConfig 本地文件系统存储配置.
type LocalStorageConfig struct {
	Root      string `mapstructure:"root"`
	URLPrefix string `mapstructure:"url_prefix"`
}

// GetSignedURLExpiry 列表签名 URL 有效期，未配置时使用默认值.
func (c *StorageConfig) GetSignedURLExpiry() time.Duration {
	if c.SignedURLExpiry <= 0 {
		return DefaultSignedURLExpiry * time.Second
	}

	return time.Duration(c.SignedURLExpiry) * time.Second
}

// GetProxyURLExpiry 代理签名 URL 有效期，取 min(配置值, 60s).
func (c *StorageConfig) GetProxyURLExpiry() time.Duration {
	secs := c.ProxyURLExpiry
	if secs <= 0 {
		secs = DefaultProxyURLExpiry
	}

	secs = min(secs, MaxProxyURLExpiry)

	return time.Duration(secs) * time.Second
}

// GetMaxUploadBytes 上传大小上限（字节）.
func (c *StorageConfig) GetMaxUploadBytes() int64 {
	mb := c.MaxUploadMB
	if mb <= 0 {
		mb = DefaultMaxUploadMB
	}

	return int64(mb) * 1024 * 1024
}

// GetMaxUploadMB 上传大小上限（MB），用于提示信息.
func (c *StorageConfig) GetMaxUploadMB() int {
	if c.MaxUploadMB <= 0 {
		return DefaultMaxUploadMB
	}

	return c.MaxUploadMB
}

// GetProbeThreshold 探测阈值（字节）.
func (c *StorageConfig) GetProbeThreshold() int64 {
	if c.ProbeThreshold <= 0 {
		return DefaultProbeThreshold
	}

	return c.ProbeThreshold
}

// GetProbeTimeout 单次探测超时.
func (c *StorageConfig) GetProbeTimeout() time.Duration {
	if c.ProbeTimeout <= 0 {
		return DefaultProbeTimeout
	}

	return c.ProbeTimeout
}

// GetProbeConcurrency 列表解析并发上限.
func (c *StorageConfig) GetProbeConcurrency() int {
	if c.ProbeConcurrency <= 0 {
		return DefaultProbeConcurrency
	}

	return c.ProbeConcurrency
}

// setDefaults 设置存储配置的默认值.
func (c *StorageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.signed_url_expiry", DefaultSignedURLExpiry)
	v.SetDefault("storage.proxy_url_expiry", DefaultProxyURLExpiry)
	v.SetDefault("storage.max_upload_mb", DefaultMaxUploadMB)
	v.SetDefault("storage.probe_threshold_bytes", DefaultProbeThreshold)
	v.SetDefault("storage.probe_timeout", DefaultProbeTimeout)
	v.SetDefault("storage.probe_concurrency", DefaultProbeConcurrency)
	v.SetDefault("storage.local.root", DefaultLocalRoot)
	v.SetDefault("storage.local.url_prefix", DefaultLocalURLPrefix)

	c.S3.setDefaults(v)
	c.Supabase.setDefaults(v)
}
