package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/mediavault/pkg/context"
)

// MsgAdminRequired 未登录访问管理接口时的提示.
const MsgAdminRequired = "Admin login required."

// RequireAdmin 要求当前会话为管理员，须挂在 SessionMiddleware 之后.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ctxPkg.IsAdmin(c.Request.Context()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": MsgAdminRequired})
			return
		}

		c.Next()
	}
}
