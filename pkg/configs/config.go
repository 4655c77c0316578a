// Package configs 管理应用程序配置，包括存储后端、认证、缓存、数据库和队列的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing storage config:
//
//	config := configs.GetConfig()
//	switch config.Storage.Backend {
//	case configs.BackendLocal:
//		fmt.Println("root:", config.Storage.Local.Root)
//	case configs.BackendS3:
//		fmt.Println("endpoint:", config.Storage.S3.GetEndpointURL())
//	}
//
// 所有配置项都可以通过 MEDIAVAULT_ 前缀的环境变量覆盖，例如:
//
//	MEDIAVAULT_STORAGE_BACKEND=s3
//	MEDIAVAULT_AUTH_ADMIN_PASSWORD=secret
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/mediavault/pkg/rule"
)

// EnvPrefix 环境变量前缀.
const EnvPrefix = "MEDIAVAULT"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器配置，端口、调试模式等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Storage        StorageConfig        `mapstructure:"storage"`         // StorageConfig 媒体存储后端配置
		Auth           AuthConfig           `mapstructure:"auth"`            // AuthConfig 管理员认证配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 列表缓存使用的键值存储
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 操作日志数据库
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 事件发布开关
		Jobs           JobsConfig           `mapstructure:"jobs"`            // JobsConfig 定时任务
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控指标
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 登录限流
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 熔断
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 找不到配置文件时仅使用默认值与环境变量.
func InitConfig(path string) error {
	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(filepath.Join(path, "configs"))

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.SetEnvPrefix(EnvPrefix)
	appViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	appViper.AutomaticEnv()

	// 读取配置
	if err := appViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 解析到全局配置
	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&globalConfig); err != nil {
		return err
	}

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// Validate 使用 rule 标签校验配置.
func Validate(cfg *AppConfig) error {
	if err := rule.ValidateStruct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		serverConfig   ServerConfig
		logConfig      LogConfig
		storageConfig  StorageConfig
		authConfig     AuthConfig
		kvConfig       KVConfig
		dbConfig       DBConfig
		mqConfig       MQConfig
		eventsConfig   EventsConfig
		jobsConfig     JobsConfig
		metricsConfig  MetricsConfig
		tracingConfig  TracingConfig
		rateLimit      RateLimitConfig
		circuitBreaker CircuitBreakerConfig
	)

	serverConfig.setDefaults(v)
	logConfig.setDefaults(v)
	storageConfig.setDefaults(v)
	authConfig.setDefaults(v)
	kvConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	mqConfig.setDefaults(v)
	eventsConfig.setDefaults(v)
	jobsConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	rateLimit.setDefaults(v)
	circuitBreaker.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload || v.ConfigFileUsed() == "" {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

// GetViper 返回全局 viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	return appViper
}
