package handle

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/log"
	"github.com/yeisme/mediavault/pkg/scheduler"
)

// RecentActivity 返回最近的管理操作，limit 默认 50.
//
//	@Summary		最近的管理操作
//	@Tags			管理
//	@Produce		json
//	@Param			limit	query		int		false	"条数，默认 50"
//	@Success		200	{object}	map[string]any	"items 与 total"
//	@Failure		401	{object}	types.ActionResult	"未登录"
//	@Failure		503	{object}	types.ActionResult	"未启用活动日志"
//	@Router			/api/v1/admin/activity [get]
func (h *Handler) RecentActivity(c *gin.Context) {
	if h.activity == nil {
		fail(c, http.StatusServiceUnavailable, "Activity log is disabled.")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	items, err := h.activity.Recent(c.Request.Context(), limit)
	if err != nil {
		log.Logger().Error().Err(err).Msg("load activity failed")
		fail(c, http.StatusInternalServerError, "Failed to load activity.")

		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// ListJobs 返回维护任务的调度状态.
//
//	@Summary		维护任务列表
//	@Tags			管理
//	@Produce		json
//	@Success		200	{object}	map[string][]scheduler.JobInfo	"jobs"
//	@Failure		401	{object}	types.ActionResult			"未登录"
//	@Router			/api/v1/admin/jobs [get]
func (h *Handler) ListJobs(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"jobs": []scheduler.JobInfo{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": h.scheduler.Jobs()})
}

// RunJob 立即触发一次维护任务，任务在后台执行.
//
//	@Summary		立即执行维护任务
//	@Tags			管理
//	@Produce		json
//	@Param			name	path		string		true	"任务名"
//	@Success		202	{object}	map[string]any	"已触发"
//	@Failure		401	{object}	types.ActionResult	"未登录"
//	@Failure		404	{object}	types.ActionResult	"任务不存在"
//	@Failure		503	{object}	types.ActionResult	"未启用调度器"
//	@Router			/api/v1/admin/jobs/{name}/run [post]
func (h *Handler) RunJob(c *gin.Context) {
	if h.scheduler == nil {
		fail(c, http.StatusServiceUnavailable, "Scheduler is disabled.")
		return
	}

	name := c.Param("name")

	if err := h.scheduler.RunNow(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			fail(c, http.StatusNotFound, "Job not found.")
			return
		}

		log.Logger().Error().Err(err).Str("job", name).Msg("trigger job failed")
		fail(c, http.StatusInternalServerError, "Failed to trigger job.")

		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Job triggered.", "job": name})
}
