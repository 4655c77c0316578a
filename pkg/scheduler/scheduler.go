// Package scheduler 提供定时任务调度功能，使用 gocron/v2 库.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/yeisme/mediavault/pkg/log"
)

// ErrJobNotFound 任务不存在.
var ErrJobNotFound = errors.New("job not found")

// JobStatus 表示任务的状态类型.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled" // 任务已调度
	StatusRunning   JobStatus = "running"   // 任务正在运行
	StatusError     JobStatus = "error"     // 上次执行出错
)

// JobFunc 任务函数，返回的错误记入 JobInfo.Error.
type JobFunc func(ctx context.Context) error

// JobInfo 表示定时任务的信息，供管理接口展示.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CronExpr    string    `json:"cron_expr"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	Runs        int       `json:"runs"`
}

// Scheduler 包装 gocron 调度器并记录每个任务的执行状态.
type Scheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job
	infos     map[string]*JobInfo
	mu        sync.RWMutex
	logger    zerolog.Logger
	now       func() time.Time
}

// NewScheduler 创建一个新的 Scheduler 实例，同名任务不会并发执行.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(gocron.WithSingletonMode(gocron.LimitModeReschedule)),
	)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler: s,
		jobs:      make(map[string]gocron.Job),
		infos:     make(map[string]*JobInfo),
		logger:    log.Component("scheduler"),
		now:       time.Now,
	}, nil
}

// AddCron 添加一个基于 cron 表达式（5 段）的定时任务，ctx 作为每次执行的父上下文.
func (s *Scheduler) AddCron(ctx context.Context, name, cronExpr string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(strings.TrimSpace(cronExpr), false),
		gocron.NewTask(func() { s.run(ctx, name, job) }),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	info := &JobInfo{ID: j.ID().String(), Name: name, CronExpr: cronExpr, Status: StatusScheduled}
	if next, err := j.NextRun(); err == nil {
		info.NextRun = next
	}

	s.jobs[name] = j
	s.infos[name] = info

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("added cron job")

	return nil
}

// run 执行任务并更新状态，panic 被捕获并记为错误.
func (s *Scheduler) run(ctx context.Context, name string, job JobFunc) {
	s.setStatus(name, func(info *JobInfo) {
		info.Status = StatusRunning
		info.LastRun = s.now()
	})

	var err error

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in job: %v", r)
			}
		}()

		err = job(ctx)
	}()

	s.setStatus(name, func(info *JobInfo) {
		info.Runs++

		if err != nil {
			info.Status = StatusError
			info.Error = err.Error()

			return
		}

		info.Status = StatusScheduled
		info.Error = ""
		info.LastSuccess = s.now()
	})

	if err != nil {
		s.logger.Error().Err(err).Str("job", name).Msg("job failed")
	}
}

func (s *Scheduler) setStatus(name string, fn func(*JobInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, ok := s.infos[name]; ok {
		fn(info)
	}
}

// RunNow 立即触发一次任务，不影响原有调度.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return j.RunNow()
}

// RemoveJob 通过名称移除任务.
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	if err := s.scheduler.RemoveJob(j.ID()); err != nil {
		return err
	}

	delete(s.jobs, name)
	delete(s.infos, name)

	s.logger.Info().Str("job", name).Msg("removed job")

	return nil
}

// Jobs 返回按名称排序的任务信息快照.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.infos))

	for name, info := range s.infos {
		cp := *info
		if next, err := s.jobs[name].NextRun(); err == nil {
			cp.NextRun = next
		}

		out = append(out, cp)
	}

	slices.SortFunc(out, func(a, b JobInfo) int { return strings.Compare(a.Name, b.Name) })

	return out
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.Jobs())).Msg("starting scheduler")
	s.scheduler.Start()
}

// Stop 停止调度器并等待正在执行的任务结束.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("stopping scheduler")

	return s.scheduler.Shutdown()
}
