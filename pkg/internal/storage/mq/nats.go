// NATS 工厂，支持集群 URL、多种认证方式以及可选的 JetStream.
package mq

import (
	"context"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/yeisme/mediavault/pkg/configs"
)

const (
	DefaultDrainTimeout   = 30 * time.Second
	DefaultFlusherTimeout = 10 * time.Second
)

// init 注册 NATS 工厂.
func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// buildNatsOptions 构建 NATS 连接选项.
func buildNatsOptions(cfg *configs.MQConfig) []nc.Option {
	common := cfg.Common

	opts := []nc.Option{
		nc.Name(common.ClientID),
		nc.MaxReconnects(common.MaxReconnects),
		nc.ReconnectWait(time.Duration(common.ReconnectWait) * time.Second),
		nc.PingInterval(time.Duration(common.PingInterval) * time.Second),
		nc.ReconnectBufSize(common.BufferSize),
		nc.DrainTimeout(DefaultDrainTimeout),
		nc.FlusherTimeout(DefaultFlusherTimeout),
		nc.RetryOnFailedConnect(true),
	}

	return appendAuthOptions(opts, cfg)
}

// appendAuthOptions 添加认证选项，优先级 JWT > NKey > 用户名密码.
func appendAuthOptions(opts []nc.Option, cfg *configs.MQConfig) []nc.Option {
	switch {
	case cfg.NATS.JWT != "":
		opts = append(opts, nc.UserJWTAndSeed(cfg.NATS.JWT, cfg.NATS.NKey))
	case cfg.NATS.NKey != "":
		opts = append(opts, nc.Nkey(cfg.NATS.NKey, nil))
	case cfg.Common.User != "":
		opts = append(opts, nc.UserInfo(cfg.Common.User, cfg.Common.Password))
	}

	return opts
}

// buildJetStreamConfig 构建 JetStream 配置.
func buildJetStreamConfig(cfg *configs.MQConfig, logger watermill.LoggerAdapter) nats.JetStreamConfig {
	js := cfg.NATS

	jsCfg := nats.JetStreamConfig{Disabled: !js.JetStreamEnabled}
	if !js.JetStreamEnabled {
		return jsCfg
	}

	jsCfg.AutoProvision = js.JetStreamAutoProvision
	jsCfg.TrackMsgId = js.JetStreamTrackMsgID
	jsCfg.AckAsync = js.JetStreamAckAsync
	jsCfg.DurablePrefix = js.JetStreamDurablePrefix

	logger.Info("jetstream enabled", watermill.LogFields{
		"auto_provision": js.JetStreamAutoProvision,
		"track_msg_id":   js.JetStreamTrackMsgID,
		"ack_async":      js.JetStreamAckAsync,
		"durable_prefix": js.JetStreamDurablePrefix,
	})

	return jsCfg
}

// buildURL 构建连接 URL，集群地址优先.
func buildURL(cfg *configs.MQConfig) string {
	if len(cfg.NATS.ClusterURLs) > 0 {
		return strings.Join(cfg.NATS.ClusterURLs, ",")
	}

	url := cfg.Common.URL
	if url != "" && !strings.Contains(url, "://") {
		url = "nats://" + url
	}

	return url
}

// natsFactory 创建 NATS Publisher & Subscriber.
// 订阅不设置队列组，每个实例都会收到全部事件.
func natsFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	opts := buildNatsOptions(cfg)
	jsCfg := buildJetStreamConfig(cfg, logger)
	marshaler := &nats.JSONMarshaler{}
	url := buildURL(cfg)

	pub, err := nats.NewPublisher(nats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   jsCfg,
		Marshaler:   marshaler,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	sub, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   jsCfg,
		Unmarshaler: marshaler,
	}, logger)
	if err != nil {
		_ = pub.Close()

		return nil, nil, err
	}

	return pub, sub, nil
}
