package handle

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/types"
	"github.com/yeisme/mediavault/pkg/log"
)

const (
	msgGalleryFailed   = "Failed to load gallery."
	msgUnknownCategory = "Unknown category."
	maxQueryLen        = 256
)

// Gallery 返回全部四个标签页，q 按显示名与描述过滤.
//
//	@Summary		获取画廊
//	@Description	一次返回图片、视频、文档、音频四个分类，按修改时间倒序
//	@Tags			画廊
//	@Produce		json
//	@Param			q	query		string					false	"按显示名与描述过滤"
//	@Success		200	{object}	types.GalleryResponse	"四个分类的列表"
//	@Failure		500	{object}	types.ActionResult		"列表失败"
//	@Router			/api/v1/gallery [get]
func (h *Handler) Gallery(c *gin.Context) {
	resp, err := h.gallery.Gallery(c.Request.Context(), query(c))
	if err != nil {
		log.Logger().Error().Err(err).Msg("gallery listing failed")
		fail(c, http.StatusInternalServerError, msgGalleryFailed)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListCategory 返回单个分类的列表.
//
//	@Summary		获取单个分类
//	@Description	列出单个分类下的媒体，q 按显示名与描述过滤
//	@Tags			画廊
//	@Produce		json
//	@Param			category	path		string				true	"分类: image, video, document, audio"
//	@Param			q			query		string				false	"按显示名与描述过滤"
//	@Success		200	{object}	types.ListResponse	"分类列表"
//	@Failure		400	{object}	types.ActionResult	"未知分类"
//	@Failure		500	{object}	types.ActionResult	"列表失败"
//	@Router			/api/v1/gallery/{category} [get]
func (h *Handler) ListCategory(c *gin.Context) {
	cat, err := types.ParseCategory(c.Param("category"))
	if err != nil {
		fail(c, http.StatusBadRequest, msgUnknownCategory)
		return
	}

	resp, err := h.gallery.ListCategory(c.Request.Context(), cat, query(c))
	if err != nil {
		log.Logger().Error().Err(err).Str("category", string(cat)).Msg("category listing failed")
		fail(c, http.StatusInternalServerError, msgGalleryFailed)

		return
	}

	c.JSON(http.StatusOK, resp)
}

func query(c *gin.Context) string {
	return service.Truncate(strings.TrimSpace(c.Query("q")), maxQueryLen)
}
