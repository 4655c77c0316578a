package handle

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	"github.com/yeisme/mediavault/pkg/log"
	"github.com/yeisme/mediavault/pkg/metrics"
)

// 代理接口返回纯文本错误，浏览器直接作为 <img>/<video> 源使用.
const (
	msgInvalidFile   = "Invalid file parameter"
	msgFetchError    = "Error fetching file"
	msgProxyNotFound = "Not found"
	msgServerError   = "Server error"
)

// StorageProxy 处理 GET /api/storage?file=<folder>/<key>，同源流式返回存储对象.
//
//	@Summary		存储代理
//	@Description	同源流式返回存储对象；外链对象由服务端拉取，私有桶走签名 URL
//	@Tags			存储
//	@Produce		octet-stream
//	@Param			file	query		string	true	"<folder>/<key>"
//	@Success		200	{file}		binary	"对象内容"
//	@Failure		400	{string}	string	"路径无效"
//	@Failure		404	{string}	string	"对象不存在"
//	@Failure		502	{string}	string	"上游拉取失败"
//	@Router			/api/storage [get]
func (h *Handler) StorageProxy(c *gin.Context) {
	file := c.Query("file")

	obj, err := h.proxy.Open(c.Request.Context(), file)
	if err != nil {
		status, msg := proxyError(err)
		if status >= http.StatusInternalServerError {
			log.Logger().Error().Err(err).Str("file", file).Msg("storage proxy failed")
		}

		metrics.ProxyTotal.WithLabelValues(strconv.Itoa(status)).Inc()
		c.Header("X-Content-Type-Options", "nosniff")
		c.String(status, msg)

		return
	}
	defer obj.Body.Close()

	metrics.ProxyTotal.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()

	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, map[string]string{
		"Cache-Control":          obj.CacheControl,
		"X-Content-Type-Options": "nosniff",
	})
}

// proxyError 将服务层错误映射为状态码与提示.
func proxyError(err error) (int, string) {
	var upErr *service.UpstreamError

	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, msgInvalidFile
	case errors.As(err, &upErr):
		return upErr.StatusCode, msgFetchError
	case backend.IsNotFound(err):
		return http.StatusNotFound, msgProxyNotFound
	default:
		return http.StatusInternalServerError, msgServerError
	}
}
