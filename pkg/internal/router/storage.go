package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/handle"
	"github.com/yeisme/mediavault/pkg/middleware"
)

// RegisterStorageRoutes 注册存储代理，代理流式返回二进制内容，不参与 gzip 与列表缓存.
func RegisterStorageRoutes(e *gin.Engine, h *handle.Handler, cfg *configs.AppConfig) {
	e.GET("/api/storage", middleware.CircuitBreakerMiddleware("storage-proxy", cfg.CircuitBreaker), h.StorageProxy)
}
