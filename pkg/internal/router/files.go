package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/handle"
	"github.com/yeisme/mediavault/pkg/middleware"
)

// RegisterFilesRoutes 注册上传与删除路由，仅管理员可用.
func RegisterFilesRoutes(g *gin.RouterGroup, h *handle.Handler, cfg *configs.AppConfig) {
	filesRoutes := g.Group("/files",
		middleware.RequireAdmin(),
		middleware.CircuitBreakerMiddleware("files", cfg.CircuitBreaker),
	)
	{
		filesRoutes.POST("", h.UploadFile)
		filesRoutes.DELETE("", h.DeleteFile)
	}
}
