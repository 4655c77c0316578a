package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/context"
	"github.com/yeisme/mediavault/pkg/internal/storage"
)

// StorageMiddleware 将存储管理器注入请求上下文，处理器从中取媒体后端与各客户端.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithStorageManager(c.Request.Context(), manager)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
