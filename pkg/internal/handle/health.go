package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/mediavault/pkg/context"
	"github.com/yeisme/mediavault/pkg/configs"
)

const timeout = 2 * time.Second

// Health 进程存活检查.
//
//	@Summary		存活检查
//	@Tags			健康检查
//	@Produce		json
//	@Success		200	{object}	map[string]string	"status 与 version"
//	@Router			/api/v1/health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": configs.AppVersion})
}

// HealthStorage 媒体存储后端健康检查.
//
//	@Summary		Storage 健康检查
//	@Tags			健康检查
//	@Produce		json
//	@Success		200	{object}	map[string]string	"组件正常"
//	@Failure		503	{object}	map[string]string	"组件不可用"
//	@Router			/api/v1/health/storage [get]
func HealthStorage(c *gin.Context) {
	b := ctxPkg.GetBackend(c.Request.Context())
	if b == nil {
		unhealthy(c, "storage", "storage backend not initialized")
		return
	}

	check(c, "storage", b.HealthCheck)
}

// HealthKV KV 缓存健康检查.
//
//	@Summary		KV 健康检查
//	@Tags			健康检查
//	@Produce		json
//	@Success		200	{object}	map[string]string	"组件正常"
//	@Failure		503	{object}	map[string]string	"组件不可用"
//	@Router			/api/v1/health/kv [get]
func HealthKV(c *gin.Context) {
	kvc := ctxPkg.GetKVClient(c.Request.Context())
	if kvc == nil {
		unhealthy(c, "kv", "kv client not initialized")
		return
	}

	check(c, "kv", kvc.HealthCheck)
}

// HealthDB 数据库健康检查.
//
//	@Summary		DB 健康检查
//	@Tags			健康检查
//	@Produce		json
//	@Success		200	{object}	map[string]string	"组件正常"
//	@Failure		503	{object}	map[string]string	"组件不可用"
//	@Router			/api/v1/health/db [get]
func HealthDB(c *gin.Context) {
	dbc := ctxPkg.GetDBClient(c.Request.Context())
	if dbc == nil || dbc.DB == nil {
		unhealthy(c, "db", "db client not initialized")
		return
	}

	check(c, "db", dbc.HealthCheck)
}

// HealthMQ 消息队列健康检查.
//
//	@Summary		MQ 健康检查
//	@Tags			健康检查
//	@Produce		json
//	@Success		200	{object}	map[string]string	"组件正常"
//	@Failure		503	{object}	map[string]string	"组件不可用"
//	@Router			/api/v1/health/mq [get]
func HealthMQ(c *gin.Context) {
	mqc := ctxPkg.GetMQClient(c.Request.Context())
	if mqc == nil { // publisher 与 subscriber 初始化在 New 中, 判空即可
		unhealthy(c, "mq", "mq client not initialized")
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "mq", "status": "ok", "type": mqc.Type()})
}

func check(c *gin.Context, component string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		unhealthy(c, component, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": component, "status": "ok"})
}

func unhealthy(c *gin.Context, component, msg string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": msg})
}
