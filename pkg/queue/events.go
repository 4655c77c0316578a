package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/sync/errgroup"

	nlog "github.com/yeisme/mediavault/pkg/log"
)

// Publisher 发布消息，mq.Client 实现该接口.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// Subscriber 订阅主题，mq.Client 实现该接口.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

func publish[T any](ctx context.Context, pub Publisher, topic string, payload T, opts ...func(*EventHeader)) error {
	if pub == nil {
		return nil
	}

	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	msg.SetContext(ctx)

	return pub.Publish(ctx, topic, msg)
}

// PublishObjectStored 发布 mv.object.stored 事件，pub 为 nil 时忽略.
func PublishObjectStored(ctx context.Context, pub Publisher, payload ObjectStoredPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, pub, TopicObjectStored, payload, opts...)
}

// PublishObjectDeleted 发布 mv.object.deleted 事件.
func PublishObjectDeleted(ctx context.Context, pub Publisher, payload ObjectDeletedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, pub, TopicObjectDeleted, payload, opts...)
}

// PublishObjectRenamed 发布 mv.object.renamed 事件.
func PublishObjectRenamed(ctx context.Context, pub Publisher, payload ObjectRenamedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, pub, TopicObjectRenamed, payload, opts...)
}

// ParseObjectStored 解析上传事件.
func ParseObjectStored(msg *message.Message) (Message[ObjectStoredPayload], error) {
	return ParseWatermillMessage[ObjectStoredPayload](msg)
}

// ParseObjectDeleted 解析删除事件.
func ParseObjectDeleted(msg *message.Message) (Message[ObjectDeletedPayload], error) {
	return ParseWatermillMessage[ObjectDeletedPayload](msg)
}

// ParseObjectRenamed 解析迁移改名事件.
func ParseObjectRenamed(msg *message.Message) (Message[ObjectRenamedPayload], error) {
	return ParseWatermillMessage[ObjectRenamedPayload](msg)
}

// eventKey 解析事件涉及的对象键，改名事件返回 "from -> to".
func eventKey(topic string, msg *message.Message) (string, error) {
	switch topic {
	case TopicObjectStored:
		ev, err := ParseObjectStored(msg)

		return ev.Payload.Object.ObjectKey, err
	case TopicObjectDeleted:
		ev, err := ParseObjectDeleted(msg)

		return ev.Payload.Object.ObjectKey, err
	case TopicObjectRenamed:
		ev, err := ParseObjectRenamed(msg)

		return ev.Payload.From.ObjectKey + " -> " + ev.Payload.To.ObjectKey, err
	default:
		return "", fmt.Errorf("unknown topic %q", topic)
	}
}

// InvalidateFunc 收到对象事件后的处理函数.
type InvalidateFunc func(ctx context.Context, topic string) error

// RunInvalidationConsumer 订阅全部对象主题，每条消息调用 fn 后 Ack.
// 无法解析的消息直接 Ack 丢弃；fn 出错只记录日志，缓存仍会按 TTL 过期.
// 订阅建立后立即返回，消费在后台进行直到 ctx 取消，返回的通道在消费结束后关闭.
func RunInvalidationConsumer(ctx context.Context, sub Subscriber, fn InvalidateFunc) (<-chan struct{}, error) {
	if sub == nil {
		return nil, errors.New("nil subscriber")
	}

	l := nlog.Component("invalidation")
	chans := make(map[string]<-chan *message.Message, len(ObjectTopics))

	for _, topic := range ObjectTopics {
		ch, err := sub.Subscribe(ctx, topic)
		if err != nil {
			return nil, err
		}

		chans[topic] = ch
	}

	done := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)

	for topic, ch := range chans {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case msg, ok := <-ch:
					if !ok {
						return nil
					}

					key, err := eventKey(topic, msg)
					if err != nil {
						l.Warn().Err(err).Str("topic", topic).Str("uuid", msg.UUID).Msg("malformed object event dropped")
						msg.Ack()

						continue
					}

					if err := fn(gctx, topic); err != nil {
						l.Warn().Err(err).Str("topic", topic).Str("key", key).Msg("cache invalidation failed")
					} else {
						l.Debug().Str("topic", topic).Str("key", key).Msg("listing cache invalidated")
					}

					msg.Ack()
				}
			}
		})
	}

	go func() {
		_ = g.Wait()

		close(done)
	}()

	return done, nil
}
