package jobs

// 任务名称常量，管理接口按名称手动触发.
const (
	JobOrphanCleanup = "companion.orphan_cleanup"
	JobActivityPrune = "activity.prune"
)
