package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/mediavault/pkg/configs"
)

// DefaultChannelBufferSize 默认通道缓冲区大小.
const DefaultChannelBufferSize = 100

// redisEnvelope Redis 频道上传输的消息结构，保留 UUID 与元数据.
type redisEnvelope struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

// RedisPublisher Redis Publisher 实现.
type RedisPublisher struct {
	client *redis.Client
}

// RedisSubscriber Redis Subscriber 实现，每个主题一个 PubSub 连接.
type RedisSubscriber struct {
	client  *redis.Client
	logger  watermill.LoggerAdapter
	mu      sync.Mutex
	subs    []*redis.PubSub
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// init 注册 Redis 工厂.
func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

// redisFactory 创建 Redis Publisher & Subscriber，两者使用独立连接池.
func redisFactory(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	pubClient := redis.NewClient(opts)
	if err := pubClient.Ping(ctx).Err(); err != nil {
		_ = pubClient.Close()

		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	return NewRedisPublisher(pubClient), NewRedisSubscriber(redis.NewClient(opts), logger), nil
}

// NewRedisPublisher 使用已有客户端创建 Publisher.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// NewRedisSubscriber 使用已有客户端创建 Subscriber.
func NewRedisSubscriber(client *redis.Client, logger watermill.LoggerAdapter) *RedisSubscriber {
	return &RedisSubscriber{client: client, logger: logger, closeCh: make(chan struct{})}
}

// Publish 实现 Publisher 接口.
func (p *RedisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		data, err := sonic.Marshal(redisEnvelope{UUID: msg.UUID, Metadata: msg.Metadata, Payload: msg.Payload})
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}

		ctx := msg.Context()
		if err := p.client.Publish(ctx, topic, data).Err(); err != nil {
			return err
		}
	}

	return nil
}

// Close 实现 Publisher 接口.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Subscribe 实现 Subscriber 接口；消息在被 Ack 或 Nack 后才投递下一条.
func (s *RedisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("subscriber closed")
	}

	ps := s.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()

		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	s.subs = append(s.subs, ps)

	out := make(chan *message.Message, DefaultChannelBufferSize)

	s.wg.Add(1)

	go s.consume(ctx, topic, ps, out)

	return out, nil
}

func (s *RedisSubscriber) consume(ctx context.Context, topic string, ps *redis.PubSub, out chan<- *message.Message) {
	defer s.wg.Done()
	defer close(out)

	in := ps.Channel()

	for {
		select {
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		case raw, ok := <-in:
			if !ok {
				return
			}

			var env redisEnvelope
			if err := sonic.Unmarshal([]byte(raw.Payload), &env); err != nil {
				s.logger.Error("drop malformed redis message", err, watermill.LogFields{"topic": topic})

				continue
			}

			if env.UUID == "" {
				env.UUID = watermill.NewUUID()
			}

			msg := message.NewMessage(env.UUID, env.Payload)
			for k, v := range env.Metadata {
				msg.Metadata.Set(k, v)
			}

			msg.SetContext(ctx)

			select {
			case out <- msg:
			case <-s.closeCh:
				return
			case <-ctx.Done():
				return
			}

			// Redis Pub/Sub 不支持重投，Nack 只记录日志
			select {
			case <-msg.Acked():
			case <-msg.Nacked():
				s.logger.Info("message nacked", watermill.LogFields{"topic": topic, "uuid": env.UUID})
			case <-s.closeCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close 实现 Subscriber 接口.
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return nil
	}

	s.closed = true
	close(s.closeCh)

	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	var errs []error

	for _, ps := range subs {
		if err := ps.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	s.wg.Wait()

	if err := s.client.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
