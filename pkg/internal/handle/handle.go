// Package handle 提供 HTTP 请求处理器，负责参数解析与状态码映射，业务逻辑在 service 包.
package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/types"
	"github.com/yeisme/mediavault/pkg/scheduler"
)

// Handler 持有各处理器依赖的服务，由 app 在启动时组装.
type Handler struct {
	gallery   *service.GalleryService
	proxy     *service.ProxyService
	files     *service.FileService
	auth      *service.AuthService
	activity  *service.ActivityService
	scheduler *scheduler.Scheduler
	// 上传请求体上限，留出 multipart 表单字段的余量
	maxBodyBytes int64
}

// Deps 构造 Handler 所需的服务；Activity 与 Scheduler 可为 nil.
type Deps struct {
	Gallery        *service.GalleryService
	Proxy          *service.ProxyService
	Files          *service.FileService
	Auth           *service.AuthService
	Activity       *service.ActivityService
	Scheduler      *scheduler.Scheduler
	MaxUploadBytes int64
}

// multipartOverhead multipart 边界与描述等表单字段的额外空间.
const multipartOverhead = 1 << 20

// New 创建 Handler.
func New(d Deps) *Handler {
	return &Handler{
		gallery:      d.Gallery,
		proxy:        d.Proxy,
		files:        d.Files,
		auth:         d.Auth,
		activity:     d.Activity,
		scheduler:    d.Scheduler,
		maxBodyBytes: d.MaxUploadBytes + multipartOverhead,
	}
}

// NotFound 未匹配路由时统一返回 JSON.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, types.ActionResult{Message: "Not found"})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, types.ActionResult{Success: false, Message: msg})
}
