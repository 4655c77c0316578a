package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册健康检查路由.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	g.GET("/health", handle.Health)

	healthRoutes := g.Group("/health")
	{
		healthRoutes.GET("/storage", handle.HealthStorage)
		healthRoutes.GET("/kv", handle.HealthKV)
		healthRoutes.GET("/db", handle.HealthDB)
		healthRoutes.GET("/mq", handle.HealthMQ)
	}
}
