package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool               `mapstructure:"enabled"` // 总开关
	Object  ObjectEventsConfig `mapstructure:"object"`
}

// ObjectEventsConfig 针对媒体对象的事件开关。
type ObjectEventsConfig struct {
	Stored  bool `mapstructure:"stored"`
	Deleted bool `mapstructure:"deleted"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.object.stored", true)
	v.SetDefault("events.object.deleted", true)
}
