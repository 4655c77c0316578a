// Package app 组装配置、存储、服务与路由，并负责进程的启动与优雅退出.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/mediavault/pkg/cache"
	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/handle"
	"github.com/yeisme/mediavault/pkg/internal/jobs"
	"github.com/yeisme/mediavault/pkg/internal/router"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/storage"
	"github.com/yeisme/mediavault/pkg/log"
	"github.com/yeisme/mediavault/pkg/metrics"
	"github.com/yeisme/mediavault/pkg/queue"
	"github.com/yeisme/mediavault/pkg/scheduler"
	"github.com/yeisme/mediavault/pkg/tracing"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// App 一个完整的画廊服务进程.
type App struct {
	Engine *gin.Engine

	config    *configs.AppConfig
	manager   *storage.Manager
	scheduler *scheduler.Scheduler
	logger    zerolog.Logger

	// 后台任务（失效消费者）的上下文
	bgCtx    context.Context
	bgCancel context.CancelFunc
	consumer <-chan struct{}
}

// NewApp 加载配置并初始化全部组件，configPath 为空时在默认位置查找配置文件.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	log.Init()

	cfg := configs.GetConfig()
	logger := log.Component("app")

	gin.DefaultWriter = log.NewGinWriter(log.Logger(), zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(log.Logger(), zerolog.ErrorLevel)

	if err := tracing.InitTracer(cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	var storageOpts []storage.Option
	if cfg.Metrics.Enabled {
		storageOpts = append(storageOpts, storage.WithRegistry(metrics.GetRegistry()))
	}

	manager, err := storage.Init(ctx, cfg, storageOpts...)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, manager: manager, logger: logger}
	a.bgCtx, a.bgCancel = context.WithCancel(context.WithoutCancel(ctx))

	engine, err := a.build()
	if err != nil {
		a.bgCancel()
		_ = manager.Close()

		return nil, err
	}

	a.Engine = engine

	return a, nil
}

// build 创建服务、维护任务、失效消费者与路由.
func (a *App) build() (*gin.Engine, error) {
	cfg := a.config
	b := a.manager.GetBackend()
	kv := a.manager.GetKVClient()
	listings := cache.NewCache(kv)

	var activity *service.ActivityService
	if dbc := a.manager.GetDBClient(); dbc != nil {
		activity = service.NewActivityService(dbc.DB)
	}

	fileOpts := []service.FileOption{service.WithCache(listings), service.WithActivity(activity)}

	// 只有客户端非 nil 时才传入，避免 typed nil 接口
	if mqc := a.manager.GetMQClient(); mqc != nil {
		fileOpts = append(fileOpts, service.WithEvents(mqc, cfg.Events))

		done, err := queue.RunInvalidationConsumer(a.bgCtx, mqc, func(ctx context.Context, topic string) error {
			n, err := service.InvalidateListings(ctx, listings)
			a.logger.Debug().Str("topic", topic).Int("keys", n).Msg("listing cache invalidated by event")

			return err
		})
		if err != nil {
			a.logger.Warn().Err(err).Msg("invalidation consumer not started")
		} else {
			a.consumer = done
		}
	}

	files := service.NewFileService(b, &cfg.Storage, fileOpts...)

	auth, err := service.NewAuthService(cfg.Auth, kv)
	if err != nil {
		return nil, fmt.Errorf("init auth: %w", err)
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(a.bgCtx, sched, cfg, jobs.Deps{Files: files, Activity: activity}); err != nil {
		_ = sched.Stop()

		return nil, fmt.Errorf("register jobs: %w", err)
	}

	a.scheduler = sched

	h := handle.New(handle.Deps{
		Gallery:        service.NewGalleryService(b, &cfg.Storage, cfg.Server.PublicBaseURL).WithPlaceholderCache(listings),
		Proxy:          service.NewProxyService(b, &cfg.Storage, nil),
		Files:          files,
		Auth:           auth,
		Activity:       activity,
		Scheduler:      sched,
		MaxUploadBytes: cfg.Storage.GetMaxUploadBytes(),
	})

	engine := gin.New()
	router.Setup(engine, h, router.Options{Config: cfg, Manager: a.manager, Auth: auth, Cache: listings})

	if err := metrics.StartMetricsServer(cfg.Metrics, engine); err != nil {
		return nil, err
	}

	return engine, nil
}

// NewHTTPServer 按 server 配置创建 http.Server.
// server.timeout 限制读取整个请求（含上传正文）的时长，请求头最多等待 10 秒.
func NewHTTPServer(cfg configs.ServerConfig, h http.Handler) *http.Server {
	timeout := cfg.GetTimeoutDuration()

	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           h,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: min(readHeaderTimeout, timeout),
		IdleTimeout:       2 * time.Minute,
	}
}

// Run 启动 HTTP 服务与调度器，ctx 取消后优雅退出.
func (a *App) Run(ctx context.Context) error {
	srv := NewHTTPServer(a.config.Server, a.Engine)
	addr := srv.Addr

	a.scheduler.Start()

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", addr).Str("backend", a.manager.GetBackend().Name()).Msg("mediavault listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	var runErr error

	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("http shutdown")
	}

	return errors.Join(runErr, a.Close(shutdownCtx))
}

// Close 停止调度器与后台消费者，并释放存储资源.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Stop())
	}

	a.bgCancel()

	if a.consumer != nil {
		select {
		case <-a.consumer:
		case <-ctx.Done():
		}
	}

	errs = append(errs, a.manager.Close(), tracing.ShutdownTracer(ctx))

	a.logger.Info().Msg("mediavault stopped")

	return errors.Join(errs...)
}
