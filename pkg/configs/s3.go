package configs

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// S3Config MinIO / S3 兼容对象存储配置.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	Region          string `mapstructure:"region"`
}

const (
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3BucketName      = "mediavault"     // 默认存储桶名称
	DefaultS3Region          = "us-east-1"      // 默认区域
)

// GetEndpointURL 获取完整的端点URL. endpoint 已带 http(s):// 时原样返回（去掉末尾斜杠）.
func (c *S3Config) GetEndpointURL() string {
	if strings.HasPrefix(c.Endpoint, "http://") || strings.HasPrefix(c.Endpoint, "https://") {
		return strings.TrimRight(c.Endpoint, "/")
	}

	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// setDefaults 设置 S3 配置的默认值.
func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("storage.s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("storage.s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("storage.s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("storage.s3.bucket_name", DefaultS3BucketName)
	v.SetDefault("storage.s3.region", DefaultS3Region)
}
