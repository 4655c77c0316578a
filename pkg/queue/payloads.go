package queue

import "time"

// EventHeader 所有事件的通用头部.
type EventHeader struct {
	// Topic 冗余记录主题，离线转储后仍可定位来源.
	Topic string `json:"topic"`
	// TraceID 来自请求的追踪 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者实例标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 负载版本.
	Version string `json:"version,omitempty"`
}

// Message 统一的消息封装.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// ObjectRef 标识媒体对象.
type ObjectRef struct {
	Backend     string `json:"backend"`
	ObjectKey   string `json:"object_key"`
	Category    string `json:"category,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// ObjectStoredPayload 上传成功.
type ObjectStoredPayload struct {
	Object      ObjectRef `json:"object"`
	FileName    string    `json:"file_name,omitempty"`
	Description string    `json:"description,omitempty"`
	Actor       string    `json:"actor,omitempty"`
}

// ObjectDeletedPayload 删除成功.
type ObjectDeletedPayload struct {
	Object ObjectRef `json:"object"`
	Actor  string    `json:"actor,omitempty"`
}

// ObjectRenamedPayload 占位文件迁移.
type ObjectRenamedPayload struct {
	From ObjectRef `json:"from"`
	To   ObjectRef `json:"to"`
}
