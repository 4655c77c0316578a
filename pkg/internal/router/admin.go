package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/internal/handle"
	"github.com/yeisme/mediavault/pkg/middleware"
)

// RegisterAdminRoutes 注册管理员路由：操作日志与维护任务.
func RegisterAdminRoutes(g *gin.RouterGroup, h *handle.Handler) {
	adminRoutes := g.Group("/admin", middleware.RequireAdmin())
	{
		adminRoutes.GET("/activity", h.RecentActivity)

		adminRoutes.GET("/jobs", h.ListJobs)
		adminRoutes.POST("/jobs/:name/run", h.RunJob)
	}
}
