// Package mq 提供基于 Watermill 的统一消息队列接口.
// 通过工厂模式屏蔽不同实现，对象变更事件通过它在实例间广播.
//
// 支持的 MQ 类型：
//   - gochannel（进程内，默认）
//   - NATS（可选 JetStream）
//   - Redis Pub/Sub
//
// 使用示例：
//
//	client, err := mq.New(ctx, &cfg.MQ, mq.WithMetrics(registry))
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	msg := message.NewMessage(watermill.NewUUID(), []byte("hello"))
//	err = client.Publish(ctx, "mv.object.stored", msg)
//
//	ch, err := client.Subscribe(ctx, "mv.object.stored")
package mq

import (
	"context"
	"fmt"
	"sort"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/mediavault/pkg/configs"
	nlog "github.com/yeisme/mediavault/pkg/log"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var factories = map[configs.MQType]Factory{}

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// RegisteredTypes 返回已注册的 MQ 类型（有序）.
func RegisteredTypes() []configs.MQType {
	out := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	mqType     configs.MQType
	prefix     string
	publisher  message.Publisher
	subscriber message.Subscriber
}

type options struct {
	registry prometheus.Registerer
}

// Option 配置 Client.
type Option func(*options)

// WithMetrics 使用 Prometheus 注册表装饰 publisher 与 subscriber.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// New 按配置创建客户端.
func New(ctx context.Context, cfg *configs.MQConfig, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	mqType := cfg.GetMQType()
	if mqType == "" {
		mqType = configs.MQTypeGoChannel
	}

	factory, ok := factories[mqType]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", mqType)
	}

	logger := NewLoggerAdapter(nlog.Logger())

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", mqType, err)
	}

	if o.registry != nil {
		builder := metrics.NewPrometheusMetricsBuilder(o.registry, configs.AppName, "mq")

		if pub, err = builder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if sub, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}
	}

	nlog.Logger().Info().Str("type", string(mqType)).Msg("mq client initialized")

	return &Client{
		mqType:     mqType,
		prefix:     cfg.NATS.SubjectPrefix,
		publisher:  pub,
		subscriber: sub,
	}, nil
}

// Type 返回 MQ 类型.
func (c *Client) Type() configs.MQType {
	return c.mqType
}

// topic 拼接主题前缀.
func (c *Client) topic(t string) string {
	if c.prefix == "" || c.mqType != configs.MQTypeNATS {
		return t
	}

	return c.prefix + "." + t
}

// Publish 便捷发布.
func (c *Client) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return fmt.Errorf("mq publisher not initialized")
	}

	return c.publisher.Publish(c.topic(topic), msgs...)
}

// Subscribe 便捷订阅，ctx 取消时通道关闭.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, fmt.Errorf("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, c.topic(topic))
}

// Close 关闭资源.
func (c *Client) Close() error {
	var err error

	if c.publisher != nil {
		if e := c.publisher.Close(); e != nil {
			err = e
		}
	}

	if c.subscriber != nil {
		if e := c.subscriber.Close(); e != nil {
			err = e
		}
	}

	return err
}
