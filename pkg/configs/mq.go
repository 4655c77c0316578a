package configs

import (
	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeGoChannel MQType = "gochannel"
	MQTypeNATS      MQType = "nats"
	MQTypeRedis     MQType = "redis"

	DefaultMQURL         = "localhost:4222"
	DefaultMaxReconnects = 5                // 默认最大重连次数.
	DefaultReconnectWait = 5                // 默认重连等待时间（秒）.
	DefaultMQClientID    = "mediavault-app" // 默认客户端ID
	DefaultPingInterval  = 20               // 默认ping间隔 (秒)
	DefaultBufferSize    = 32768            // 默认缓冲区大小 (32KB)
)

// MQConfig 消息队列配置.
//
// gochannel 为进程内实现，单实例部署时无需外部依赖；多实例部署时使用 nats 或 redis
// 以便各实例收到对象变更事件后清理自己的列表缓存.
type MQConfig struct {
	Type   MQType         `mapstructure:"type"   rule:"oneof=gochannel nats redis"`
	Common MQCommonConfig `mapstructure:"common"`
	NATS   MQNATSConfig   `mapstructure:"nats"`
	Redis  MQRedisConfig  `mapstructure:"redis"`
}

// MQCommonConfig 通用MQ配置.
type MQCommonConfig struct {
	URL           string `mapstructure:"url"            rule:"omitempty,hostname_port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	ClientID      string `mapstructure:"client_id"`
	MaxReconnects int    `mapstructure:"max_reconnects" rule:"min=0,max=100"`
	ReconnectWait int    `mapstructure:"reconnect_wait" rule:"min=0,max=300"`
	PingInterval  int    `mapstructure:"ping_interval"  rule:"min=0,max=300"`
	BufferSize    int    `mapstructure:"buffer_size"    rule:"min=0,max=1048576"`
}

// MQNATSConfig NATS MQ 配置.
type MQNATSConfig struct {
	JetStreamEnabled       bool     `mapstructure:"jetstream_enabled"`
	JetStreamAutoProvision bool     `mapstructure:"jetstream_auto_provision"`
	JetStreamTrackMsgID    bool     `mapstructure:"jetstream_track_msg_id"`
	JetStreamAckAsync      bool     `mapstructure:"jetstream_ack_async"`
	JetStreamDurablePrefix string   `mapstructure:"jetstream_durable_prefix"`
	SubjectPrefix          string   `mapstructure:"subject_prefix"`
	JWT                    string   `mapstructure:"jwt"`
	NKey                   string   `mapstructure:"nkey"`
	ClusterURLs            []string `mapstructure:"cluster_urls"`
}

// MQRedisConfig Redis MQ 配置.
type MQRedisConfig struct {
	Addr     string `mapstructure:"addr"     rule:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

// GetMQType 返回当前配置的消息队列类型.
func (c *MQConfig) GetMQType() MQType {
	return c.Type
}

// setDefaults 设置MQ配置的默认值.
func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeGoChannel)

	// Common 默认值
	v.SetDefault("mq.common.url", DefaultMQURL)
	v.SetDefault("mq.common.user", "")
	v.SetDefault("mq.common.password", "")
	v.SetDefault("mq.common.client_id", DefaultMQClientID)
	v.SetDefault("mq.common.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.common.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.common.ping_interval", DefaultPingInterval)
	v.SetDefault("mq.common.buffer_size", DefaultBufferSize)

	// NATS 默认值，失效通知是广播语义，默认不使用 JetStream 持久化
	v.SetDefault("mq.nats.jetstream_enabled", false)
	v.SetDefault("mq.nats.jetstream_auto_provision", true)
	v.SetDefault("mq.nats.jetstream_track_msg_id", false)
	v.SetDefault("mq.nats.jetstream_ack_async", false)
	v.SetDefault("mq.nats.jetstream_durable_prefix", "mediavault")
	v.SetDefault("mq.nats.subject_prefix", "")
	v.SetDefault("mq.nats.jwt", "")
	v.SetDefault("mq.nats.nkey", "")
	v.SetDefault("mq.nats.cluster_urls", []string{})

	// Redis 默认值
	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.password", "")
	v.SetDefault("mq.redis.db", 0)
}
