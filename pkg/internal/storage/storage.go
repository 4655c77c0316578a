// Package storage 聚合媒体后端、KV、数据库与消息队列，按配置统一初始化与关闭.
//
// Example:
//
//	mgr, err := storage.Init(ctx, configs.GetConfig())
//	if err != nil {
//		return err
//	}
//	defer mgr.Close()
//
//	objs, err := backend.ListEntries(ctx, mgr.GetBackend(), "images")
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	dbc "github.com/yeisme/mediavault/pkg/internal/storage/db"
	kvc "github.com/yeisme/mediavault/pkg/internal/storage/kv"
	"github.com/yeisme/mediavault/pkg/internal/storage/local"
	mqc "github.com/yeisme/mediavault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/mediavault/pkg/internal/storage/s3"
	"github.com/yeisme/mediavault/pkg/internal/storage/supabase"
	nlog "github.com/yeisme/mediavault/pkg/log"
)

// Manager 聚合所有存储资源；DB 与 MQ 可能为 nil（未启用或初始化失败）.
type Manager struct {
	Backend backend.Backend
	KV      *kvc.Client
	DB      *dbc.Client
	MQ      *mqc.Client
}

type initOptions struct {
	registry prometheus.Registerer
}

// Option 配置 Init.
type Option func(*initOptions)

// WithRegistry 为 MQ 与 DB 启用 Prometheus 指标.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *initOptions) { o.registry = reg }
}

// NewBackend 按配置创建媒体后端.
func NewBackend(ctx context.Context, cfg *configs.StorageConfig) (backend.Backend, error) {
	switch cfg.Backend {
	case configs.BackendLocal, "":
		return local.New(cfg.Local)
	case configs.BackendS3:
		return s3c.New(ctx, &cfg.S3)
	case configs.BackendSupabase:
		return supabase.New(&cfg.Supabase)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// Init 按全局配置初始化存储.
// 媒体后端与 KV 是必需的；DB 与 MQ 失败时只记录警告，操作日志与事件随之关闭.
func Init(ctx context.Context, cfg *configs.AppConfig, opts ...Option) (*Manager, error) {
	var o initOptions
	for _, opt := range opts {
		opt(&o)
	}

	l := nlog.Logger()

	b, err := NewBackend(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage backend: %w", err)
	}

	kv, err := kvc.New(ctx, &cfg.KV)
	if err != nil {
		_ = b.Close()

		return nil, fmt.Errorf("init kv: %w", err)
	}

	m := &Manager{Backend: b, KV: kv}

	if cfg.DB.Enabled {
		dbOpts := []dbc.Option{dbc.WithDebug(cfg.Server.Debug)}
		if o.registry != nil {
			dbOpts = append(dbOpts, dbc.WithMetrics())
		}

		if m.DB, err = dbc.New(ctx, &cfg.DB, dbOpts...); err != nil {
			l.Warn().Err(err).Msg("activity database unavailable, activity log disabled")
		}
	}

	if cfg.Events.Enabled {
		var mqOpts []mqc.Option
		if o.registry != nil {
			mqOpts = append(mqOpts, mqc.WithMetrics(o.registry))
		}

		if m.MQ, err = mqc.New(ctx, &cfg.MQ, mqOpts...); err != nil {
			l.Warn().Err(err).Msg("mq unavailable, object events disabled")
		}
	}

	l.Info().
		Str("backend", b.Name()).
		Str("kv", string(kv.Type())).
		Bool("db", m.DB != nil).
		Bool("mq", m.MQ != nil).
		Msg("storage manager initialized")

	return m, nil
}

// GetBackend 获取媒体后端.
func (m *Manager) GetBackend() backend.Backend {
	if m == nil {
		return nil
	}

	return m.Backend
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	if m == nil {
		return nil
	}

	return m.KV
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	if m == nil {
		return nil
	}

	return m.DB
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	if m == nil {
		return nil
	}

	return m.MQ
}

// Close 关闭所有资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.Backend != nil {
		errs = append(errs, m.Backend.Close())
	}

	return errors.Join(errs...)
}
