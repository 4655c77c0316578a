package configs

import "github.com/spf13/viper"

const (
	DefaultOrphanCleanupCron = "0 4 * * *"  // 每天 04:00 清理孤立的伴随 JSON
	DefaultActivityPruneCron = "30 4 * * *" // 每天 04:30 清理过期操作日志
)

// JobsConfig 定时任务配置.
type JobsConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	OrphanCleanupCron string `mapstructure:"orphan_cleanup_cron" rule:"omitempty,cron"`
	ActivityPruneCron string `mapstructure:"activity_prune_cron" rule:"omitempty,cron"`
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.orphan_cleanup_cron", DefaultOrphanCleanupCron)
	v.SetDefault("jobs.activity_prune_cron", DefaultActivityPruneCron)
}
