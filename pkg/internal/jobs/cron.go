// Package jobs 负责注册与实现画廊的维护任务（基于 scheduler）.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/log"
	"github.com/yeisme/mediavault/pkg/scheduler"
)

// Deps 维护任务依赖的服务，Activity 为 nil 时不注册日志清理任务.
type Deps struct {
	Files    *service.FileService
	Activity *service.ActivityService
}

// RegisterCronJobs 按配置注册维护任务：
//   - 清理主文件已不存在的伴随 JSON
//   - 删除超过保留天数的操作日志
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, cfg *configs.AppConfig, deps Deps) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if deps.Files == nil {
		return errors.New("file service is nil")
	}

	if !cfg.Jobs.Enabled {
		log.Logger().Info().Msg("maintenance jobs disabled")
		return nil
	}

	err := sched.AddCron(ctx, JobOrphanCleanup, cronOr(cfg.Jobs.OrphanCleanupCron, configs.DefaultOrphanCleanupCron),
		OrphanCleanup(deps.Files))
	if err != nil {
		return err
	}

	if deps.Activity == nil {
		return nil
	}

	return sched.AddCron(ctx, JobActivityPrune, cronOr(cfg.Jobs.ActivityPruneCron, configs.DefaultActivityPruneCron),
		ActivityPrune(deps.Activity, cfg.DB.GetActivityRetentionDays(), time.Now))
}

// OrphanCleanup 返回清理孤立伴随 JSON 的任务.
func OrphanCleanup(files *service.FileService) scheduler.JobFunc {
	return func(ctx context.Context) error {
		l := log.Component("jobs").With().Str("job", JobOrphanCleanup).Logger()

		n, err := files.CleanupOrphanCompanions(ctx)
		if err != nil {
			return err
		}

		if n > 0 {
			l.Info().Int("removed", n).Msg("removed orphan companions")
		}

		return nil
	}
}

// ActivityPrune 返回删除 retentionDays 天前操作日志的任务.
func ActivityPrune(activity *service.ActivityService, retentionDays int, now func() time.Time) scheduler.JobFunc {
	return func(ctx context.Context) error {
		l := log.Component("jobs").With().Str("job", JobActivityPrune).Logger()

		before := now().AddDate(0, 0, -retentionDays)

		n, err := activity.Prune(ctx, before)
		if err != nil {
			return err
		}

		if n > 0 {
			l.Info().Int64("deleted", n).Time("before", before).Msg("pruned activity log")
		}

		return nil
	}
}

func cronOr(expr, fallback string) string {
	if expr == "" {
		return fallback
	}

	return expr
}
