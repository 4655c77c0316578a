package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/configs"
)

// CORSMiddleware CORS中间件.
//
// 会话 cookie 只在同源下有效，跨域调用方只能读取公开的列表与代理接口.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "HEAD", "POST", "DELETE", "OPTIONS"}
	config.AllowHeaders = append(config.AllowHeaders, "X-Cache-Bypass")
	config.ExposeHeaders = []string{"X-Cache", "ETag", "Content-Length"}

	if cfg.Debug {
		config.AllowFiles = true
	}

	return cors.New(config)
}
