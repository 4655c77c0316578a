// Package context 拓展上下文功能，将存储管理器、会话和追踪信息放入请求上下文，方便在各层之间传递.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/mediavault/pkg/internal/storage"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	dbc "github.com/yeisme/mediavault/pkg/internal/storage/db"
	kvc "github.com/yeisme/mediavault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/mediavault/pkg/internal/storage/mq"
)

type ContextKey string

const (
	StorageManagerKey ContextKey = "storageManager"
	SessionKey        ContextKey = "session"
)

// Session 当前请求的会话信息.
type Session struct {
	Admin   bool
	Subject string
	// 令牌 ID，注销时用于吊销
	TokenID string
}

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, StorageManagerKey, mgr)
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	if mgr, ok := ctx.Value(StorageManagerKey).(*storage.Manager); ok {
		return mgr
	}

	return nil
}

// GetBackend 从 context 中获取媒体后端.
func GetBackend(ctx context.Context) backend.Backend {
	return GetManager(ctx).GetBackend()
}

// GetDBClient 从 context 中获取 DB 客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	return GetManager(ctx).GetDBClient()
}

// GetMQClient 从 context 中获取 MQ 客户端.
func GetMQClient(ctx context.Context) *mqc.Client {
	return GetManager(ctx).GetMQClient()
}

// GetKVClient 从 context 中获取 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	return GetManager(ctx).GetKVClient()
}

// WithSession 将会话存入 context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// GetSession 获取会话，未登录时返回零值.
func GetSession(ctx context.Context) Session {
	if s, ok := ctx.Value(SessionKey).(Session); ok {
		return s
	}

	return Session{}
}

// IsAdmin 当前请求是否为管理员.
func IsAdmin(ctx context.Context) bool {
	return GetSession(ctx).Admin
}

// WithTraceContext 创建带有追踪上下文的logger.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return logger
}
