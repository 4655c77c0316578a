package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/mediavault/pkg/configs"
)

// goChannelBuffer 每个订阅者的输出缓冲.
const goChannelBuffer = 64

func init() {
	RegisterFactory(configs.MQTypeGoChannel, goChannelFactory)
}

// goChannelFactory 进程内 Pub/Sub，同一个实例同时作为 Publisher 与 Subscriber.
func goChannelFactory(_ context.Context, _ *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: goChannelBuffer}, logger)

	return ps, ps, nil
}
