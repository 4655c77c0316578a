package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/cache"
	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/handle"
	"github.com/yeisme/mediavault/pkg/middleware"
)

// RegisterGalleryRoutes 注册画廊列表路由.
func RegisterGalleryRoutes(g *gin.RouterGroup, h *handle.Handler, cfg *configs.AppConfig, c *cache.Cache) {
	galleryRoutes := g.Group("/gallery",
		middleware.CircuitBreakerMiddleware("gallery", cfg.CircuitBreaker),
		middleware.CacheMiddleware(middleware.DefaultCacheConfig(c, cfg.KV.GetListingTTL())),
	)
	{
		galleryRoutes.GET("", h.Gallery)
		galleryRoutes.GET("/:category", h.ListCategory)
	}
}
