package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/handle"
	"github.com/yeisme/mediavault/pkg/middleware"
)

// RegisterAuthRoutes 注册登录相关路由，登录接口限流.
func RegisterAuthRoutes(g *gin.RouterGroup, h *handle.Handler, cfg *configs.AppConfig) {
	authRoutes := g.Group("/auth")
	{
		authRoutes.POST("/login", middleware.RateLimitMiddleware(cfg.RateLimit), h.Login)
		authRoutes.POST("/logout", h.Logout)
		authRoutes.GET("/session", h.Session)
	}
}
