// Package db 管理操作日志数据库连接.
package db

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormPrometheus "gorm.io/plugin/prometheus"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/model"
	nlog "github.com/yeisme/mediavault/pkg/log"
)

// DialectorFactory 定义创建 dialector 的函数类型.
type DialectorFactory func(dsn string) gorm.Dialector

// dialectorFactories 存储数据库类型到 dialector 工厂的映射.
var dialectorFactories = map[configs.DBType]DialectorFactory{}

// RegisterDialectorFactory 注册数据库 dialector 工厂函数.
func RegisterDialectorFactory(factory DialectorFactory, dbTypes ...configs.DBType) {
	for _, t := range dbTypes {
		dialectorFactories[t] = factory
	}
}

// GetRegisteredDBTypes 返回已注册的数据库类型列表（有序）.
func GetRegisteredDBTypes() []configs.DBType {
	types := make([]configs.DBType, 0, len(dialectorFactories))
	for dbType := range dialectorFactories {
		types = append(types, dbType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Client 包装 GORM DB 客户端.
type Client struct {
	*gorm.DB
	dbType configs.DBType
}

type options struct {
	metrics bool
	debug   bool
}

// Option 配置 Client.
type Option func(*options)

// WithMetrics 启用 GORM prometheus 插件.
func WithMetrics() Option {
	return func(o *options) { o.metrics = true }
}

// WithDebug 输出全部 SQL.
func WithDebug(debug bool) Option {
	return func(o *options) { o.debug = debug }
}

// New 连接数据库并执行自动迁移.
func New(ctx context.Context, cfg *configs.DBConfig, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dsn := cfg.GetDSN()
	if dsn == "" {
		return nil, fmt.Errorf("failed to generate DSN for database type: %s", cfg.Type)
	}

	factory, exists := dialectorFactories[cfg.Type]
	if !exists {
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	level := logger.Warn
	if o.debug {
		level = logger.Info
	}

	gormLogger := logger.New(
		nlog.Logger(),
		logger.Config{
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)

	gdb, err := gorm.Open(factory(dsn), &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// SQLite 只允许单写者
	if cfg.Type == configs.SQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &Client{DB: gdb, dbType: cfg.Type}

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	if o.metrics {
		if err := client.RegisterGORMMetrics(cfg.Database); err != nil {
			return nil, err
		}
	}

	nlog.Logger().Info().
		Str("type", cfg.GetDBType()).
		Str("database", cfg.Database).
		Msg("database connected")

	return client, nil
}

// Migrate 自动迁移所有模型.
func (c *Client) Migrate(ctx context.Context) error {
	if err := c.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

// Type 返回数据库类型.
func (c *Client) Type() configs.DBType {
	return c.dbType
}

// HealthCheck ping 数据库.
func (c *Client) HealthCheck(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// Close 关闭连接池.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

const defaultGORMMetricsRefreshInterval = 15 // 秒

// RegisterGORMMetrics 注册 GORM 连接池指标.
func (c *Client) RegisterGORMMetrics(dbName string) error {
	promConfig := gormPrometheus.Config{
		DBName:          dbName,
		RefreshInterval: defaultGORMMetricsRefreshInterval,
		StartServer:     false,
	}

	if err := c.Use(gormPrometheus.New(promConfig)); err != nil {
		return fmt.Errorf("failed to register GORM prometheus plugin: %w", err)
	}

	return nil
}
