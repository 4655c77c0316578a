package handle

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/mediavault/pkg/context"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	"github.com/yeisme/mediavault/pkg/internal/types"
	"github.com/yeisme/mediavault/pkg/log"
	"github.com/yeisme/mediavault/pkg/rule"
)

// UploadFile 处理 multipart 上传，字段: file, type（可选）, description（可选）.
//
//	@Summary		上传媒体文件
//	@Description	管理员上传单个文件，未指定 type 时按扩展名推断分类，重名时追加序号
//	@Tags			文件管理
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file			formData	file		true	"上传的文件"
//	@Param			type			formData	string		false	"目标目录: images, videos, documents, audio"
//	@Param			description	formData	string		false	"文件描述"
//	@Success		200	{object}	types.ActionResult	"上传成功，path 为存储路径"
//	@Failure		400	{object}	types.ActionResult	"缺少文件或类型不支持"
//	@Failure		401	{object}	types.ActionResult	"未登录"
//	@Failure		413	{object}	types.ActionResult	"文件过大"
//	@Failure		500	{object}	types.ActionResult	"上传失败"
//	@Router			/api/v1/files [post]
func (h *Handler) UploadFile(c *gin.Context) {
	l := log.Logger()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf(service.MsgTooLargeFmt, (h.maxBodyBytes-multipartOverhead)/(1024*1024)))

			return
		}

		l.Debug().Err(err).Msg("upload without file field")
		fail(c, http.StatusBadRequest, service.MsgSelectFile)

		return
	}

	category := c.PostForm("type")
	if err := rule.ValidateVar(category, "omitempty,media_folder"); err != nil {
		fail(c, http.StatusBadRequest, service.MsgUnsupportedType)
		return
	}

	f, err := fh.Open()
	if err != nil {
		l.Error().Err(err).Str("file", fh.Filename).Msg("open multipart file failed")
		fail(c, http.StatusInternalServerError, service.MsgUploadFailed)

		return
	}
	defer f.Close()

	res, err := h.files.Upload(c.Request.Context(), service.UploadInput{
		FileName:    fh.Filename,
		Category:    category,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
		Description: strings.TrimSpace(c.PostForm("description")),
		Actor:       ctxPkg.GetSession(c.Request.Context()).Subject,
		ClientIP:    c.ClientIP(),
	})
	if err != nil {
		status := actionStatus(err)
		if status >= http.StatusInternalServerError {
			l.Error().Err(err).Str("file", fh.Filename).Msg("upload failed")
		}

		fail(c, status, res.Message)

		return
	}

	c.JSON(http.StatusOK, res)
}

// DeleteFile 删除文件及其伴随 JSON，参数可为 JSON、表单或查询串.
//
//	@Summary		删除媒体文件
//	@Description	删除文件及其伴随 JSON，参数可放在 JSON 正文、表单或查询串中
//	@Tags			文件管理
//	@Accept			json
//	@Produce		json
//	@Param			request	body		types.DeleteRequest	false	"删除请求"
//	@Param			fileName	query		string				false	"存储文件名"
//	@Param			type		query		string				false	"所在目录"
//	@Success		200	{object}	types.ActionResult	"删除成功"
//	@Failure		400	{object}	types.ActionResult	"参数无效"
//	@Failure		401	{object}	types.ActionResult	"未登录"
//	@Failure		404	{object}	types.ActionResult	"文件不存在"
//	@Failure		500	{object}	types.ActionResult	"删除失败"
//	@Router			/api/v1/files [delete]
func (h *Handler) DeleteFile(c *gin.Context) {
	var req types.DeleteRequest
	if err := c.ShouldBind(&req); err != nil || req.FileName == "" {
		req.FileName = c.Query("fileName")
		req.Type = c.Query("type")
	}

	if err := rule.ValidateStruct(&req); err != nil {
		fail(c, http.StatusBadRequest, service.MsgInvalidFileInfo)
		return
	}

	sess := ctxPkg.GetSession(c.Request.Context())

	res, err := h.files.Delete(c.Request.Context(), req.FileName, req.Type, sess.Subject, c.ClientIP())
	if err != nil {
		status := actionStatus(err)
		if status >= http.StatusInternalServerError {
			log.Logger().Error().Err(err).Str("file", req.FileName).Msg("delete failed")
		}

		fail(c, status, res.Message)

		return
	}

	c.JSON(http.StatusOK, res)
}

// actionStatus 上传与删除错误的状态码.
func actionStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case backend.IsNotFound(err):
		return http.StatusNotFound
	case backend.IsPermission(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
