package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/storage/mq"
)

// roundTrip 订阅后发布一条消息并等待收到.
func roundTrip(t *testing.T, client *mq.Client) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := client.Subscribe(ctx, "mv.object.stored")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"key":"images/a.png"}`))
	msg.Metadata.Set("event_type", "mv.object.stored")

	if err := client.Publish(ctx, "mv.object.stored", msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-ch:
		if string(got.Payload) != `{"key":"images/a.png"}` {
			t.Errorf("payload = %s", got.Payload)
		}

		if got.UUID != msg.UUID || got.Metadata.Get("event_type") != "mv.object.stored" {
			t.Errorf("uuid/metadata not preserved: %s %v", got.UUID, got.Metadata)
		}

		got.Ack()
	case <-ctx.Done():
		t.Fatal("timeout waiting for message")
	}
}

// TestGoChannel 测试进程内实现.
func TestGoChannel(t *testing.T) {
	client, err := mq.New(context.Background(), &configs.MQConfig{Type: configs.MQTypeGoChannel},
		mq.WithMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	roundTrip(t, client)
}

// TestRedis 测试 Redis Pub/Sub 实现.
func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := mq.New(context.Background(), &configs.MQConfig{
		Type:  configs.MQTypeRedis,
		Redis: configs.MQRedisConfig{Addr: mr.Addr()},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	roundTrip(t, client)
}

// TestUnsupportedType 测试未知类型.
func TestUnsupportedType(t *testing.T) {
	if _, err := mq.New(context.Background(), &configs.MQConfig{Type: "kafka"}); err == nil {
		t.Fatal("expected error for unsupported type")
	}

	if len(mq.RegisteredTypes()) != 3 {
		t.Errorf("RegisteredTypes = %v", mq.RegisteredTypes())
	}
}
