// Package router 管理路由配置，把处理器与中间件绑定到 gin 引擎.
package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/cache"
	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/handle"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/storage"
	"github.com/yeisme/mediavault/pkg/internal/storage/local"
	"github.com/yeisme/mediavault/pkg/middleware"
)

// Options 路由依赖的配置与共享组件，Cache 为 nil 时列表不缓存.
type Options struct {
	Config  *configs.AppConfig
	Manager *storage.Manager
	Auth    *service.AuthService
	Cache   *cache.Cache
}

// Setup 注册全局中间件与全部路由：
//
//	GET  /api/storage          存储代理（公开）
//	GET  /uploads/*            本地后端静态文件
//	/api/v1/gallery            画廊列表（公开，缓存）
//	/api/v1/files              上传与删除（管理员）
//	/api/v1/auth               登录、注销、会话
//	/api/v1/admin              操作日志与维护任务（管理员）
//	/api/v1/health             健康检查
func Setup(e *gin.Engine, h *handle.Handler, opt Options) {
	cfg := opt.Config

	e.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.CORSMiddleware(cfg.Server),
		middleware.StorageMiddleware(opt.Manager),
		middleware.SessionMiddleware(opt.Auth),
	)
	e.NoRoute(handle.NotFound)

	RegisterStorageRoutes(e, h, cfg)

	if lb, ok := opt.Manager.GetBackend().(*local.Backend); ok {
		e.Static(lb.URLPrefix(), lb.Root())
	}

	api := e.Group("/api/v1", gzip.Gzip(gzip.DefaultCompression))

	RegisterHealthCheckRoute(api)
	RegisterGalleryRoutes(api, h, cfg, opt.Cache)
	RegisterFilesRoutes(api, h, cfg)
	RegisterAuthRoutes(api, h, cfg)
	RegisterAdminRoutes(api, h)
}
