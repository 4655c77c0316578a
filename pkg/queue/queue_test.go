package queue_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/storage/mq"
	"github.com/yeisme/mediavault/pkg/queue"
)

// TestEnvelopeRoundTrip 测试消息头与负载编解码.
func TestEnvelopeRoundTrip(t *testing.T) {
	payload := queue.ObjectStoredPayload{
		Object:   queue.ObjectRef{Backend: "local", ObjectKey: "images/a.png", Category: "image", Size: 10},
		FileName: "a.png",
	}

	msg, err := queue.NewWatermillMessage(queue.TopicObjectStored, payload, queue.WithTraceID("t-1"), queue.WithProducer("node-a"))
	if err != nil {
		t.Fatalf("NewWatermillMessage: %v", err)
	}

	if msg.Metadata.Get("trace_id") != "t-1" || msg.Metadata.Get("topic") != queue.TopicObjectStored {
		t.Errorf("metadata = %v", msg.Metadata)
	}

	env, err := queue.ParseObjectStored(msg)
	if err != nil {
		t.Fatalf("ParseObjectStored: %v", err)
	}

	if env.Header.Producer != "node-a" || env.Header.Version != queue.PayloadVersionV1 {
		t.Errorf("header = %+v", env.Header)
	}

	if env.Payload.Object.ObjectKey != "images/a.png" || env.Payload.FileName != "a.png" {
		t.Errorf("payload = %+v", env.Payload)
	}
}

// TestPublishNilPublisher 测试未启用事件时发布为空操作.
func TestPublishNilPublisher(t *testing.T) {
	if err := queue.PublishObjectDeleted(context.Background(), nil, queue.ObjectDeletedPayload{}); err != nil {
		t.Fatalf("nil publisher should be ignored: %v", err)
	}
}

// TestInvalidationConsumer 测试收到事件后调用失效函数.
func TestInvalidationConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := mq.New(ctx, &configs.MQConfig{Type: configs.MQTypeGoChannel})
	if err != nil {
		t.Fatalf("mq.New: %v", err)
	}
	defer client.Close()

	var calls atomic.Int32

	done, err := queue.RunInvalidationConsumer(ctx, client, func(context.Context, string) error {
		calls.Add(1)

		return nil
	})
	if err != nil {
		t.Fatalf("RunInvalidationConsumer: %v", err)
	}

	// 无法解析的消息被丢弃，不触发失效
	_ = client.Publish(ctx, queue.TopicObjectStored, message.NewMessage(watermill.NewUUID(), []byte("{")))

	ref := queue.ObjectRef{Backend: "local", ObjectKey: "videos/a.mp4"}
	_ = queue.PublishObjectStored(ctx, client, queue.ObjectStoredPayload{Object: ref})
	_ = queue.PublishObjectDeleted(ctx, client, queue.ObjectDeletedPayload{Object: ref})

	deadline := time.After(3 * time.Second)

	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("invalidation called %d times, want 2", calls.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	time.Sleep(50 * time.Millisecond)

	if n := calls.Load(); n != 2 {
		t.Errorf("invalidation called %d times, want 2", n)
	}

	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}
