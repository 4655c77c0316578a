package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/mediavault/pkg/context"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/log"
)

const bearerPrefix = "Bearer "

// SessionMiddleware 从会话 cookie（或 Authorization: Bearer）解析管理员会话并放入请求上下文.
//
// 无令牌或令牌无效时按匿名访客处理，不中断请求；是否需要登录由 RequireAdmin 决定.
func SessionMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil {
			c.Next()
			return
		}

		token := sessionToken(c, auth.CookieName())
		if token == "" {
			c.Next()
			return
		}

		sess, err := auth.Verify(c.Request.Context(), token)
		if err != nil {
			log.Logger().Debug().Err(err).Str("path", c.Request.URL.Path).Msg("ignoring invalid session token")
			c.Next()

			return
		}

		c.Request = c.Request.WithContext(ctxPkg.WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}

	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}

	return ""
}
