// Package queue 定义对象变更事件的消息封装、主题与负载.
//
// 上传、删除与占位文件迁移成功后发布事件；每个实例订阅这些事件并清理本地列表缓存，
// 多实例部署时借助 NATS 或 Redis 广播实现缓存一致.
//
// 消息信封 JSON 结构：
//
//	{
//	  "header": {
//	    "topic": "mv.object.stored",
//	    "trace_id": "optional-trace-id",
//	    "producer": "mediavault",
//	    "occurred_at": "2025-01-02T03:04:05.123456Z",
//	    "version": "v1"
//	  },
//	  "payload": { "object": { "backend": "local", "object_key": "images/a.png", ... } }
//	}
//
// 发布：
//
//	err := queue.PublishObjectStored(ctx, mqClient, queue.ObjectStoredPayload{Object: ref})
//
// 订阅：
//
//	err := queue.RunInvalidationConsumer(ctx, mqClient, func(ctx context.Context, topic string) error {
//		_, err := c.DeletePrefix(ctx, "gallery:")
//		return err
//	})
package queue

import (
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

const (
	PayloadVersionV1 string = "v1"
)

// NewEventHeader 便捷创建事件头.
func NewEventHeader(topic string, opts ...func(*EventHeader)) EventHeader {
	hdr := EventHeader{
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		Version:    PayloadVersionV1,
	}
	for _, opt := range opts {
		opt(&hdr)
	}

	return hdr
}

// WithTraceID 设置 TraceID.
func WithTraceID(id string) func(*EventHeader) { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 设置 Producer.
func WithProducer(p string) func(*EventHeader) { return func(h *EventHeader) { h.Producer = p } }

// Encode 将消息封装为 JSON 字节切片.
func Encode[T any](msg Message[T]) ([]byte, error) { return sonic.Marshal(msg) }

// Decode 从 JSON 字节解码为消息.
func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]

	err := sonic.Unmarshal(b, &m)

	return m, err
}

// NewWatermillMessage 构造 watermill 消息，头部同时写入元数据便于中间件过滤.
func NewWatermillMessage[T any](topic string, payload T, opts ...func(*EventHeader)) (*message.Message, error) {
	header := NewEventHeader(topic, opts...)

	data, err := Encode(Message[T]{Header: header, Payload: payload})
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("topic", topic)
	msg.Metadata.Set("occurred_at", header.OccurredAt.Format(time.RFC3339Nano))
	msg.Metadata.Set("version", header.Version)

	if header.TraceID != "" {
		msg.Metadata.Set("trace_id", header.TraceID)
	}

	if header.Producer != "" {
		msg.Metadata.Set("producer", header.Producer)
	}

	return msg, nil
}

// ParseWatermillMessage 解出泛型负载.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	return Decode[T](msg.Payload)
}
