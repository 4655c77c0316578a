package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/mediavault/pkg/configs"
)

// MsgTooManyRequests 触发限流时返回给前端的提示.
const MsgTooManyRequests = "Too many attempts. Please try again later."

const (
	limiterIdleTTL         = 10 * time.Minute
	limiterCleanupInterval = time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware 返回一个基于配置的限流中间件，挂在登录接口上.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))

	if keyMode == "global" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				abortTooMany(c)
				return
			}

			c.Next()
		}
	}

	var (
		mu       sync.Mutex
		limiters = map[string]*limiterEntry{}
		lastGC   = time.Now()
	)

	// 请求路径上顺带清理闲置 limiter，不额外起后台协程
	getLimiter := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(lastGC) > limiterCleanupInterval {
			for k, e := range limiters {
				if now.Sub(e.lastSeen) > limiterIdleTTL {
					delete(limiters, k)
				}
			}

			lastGC = now
		}

		e, ok := limiters[key]
		if !ok {
			e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}
			limiters[key] = e
		}

		e.lastSeen = now

		return e.limiter
	}

	return func(c *gin.Context) {
		var key string

		if h, ok := strings.CutPrefix(keyMode, "header:"); ok {
			key = c.GetHeader(h)
		}

		if key == "" {
			key = clientIP(c)
		}

		if key == "" {
			key = "unknown"
		}

		if !getLimiter(key).Allow() {
			abortTooMany(c)
			return
		}

		c.Next()
	}
}

func abortTooMany(c *gin.Context) {
	c.Header("Retry-After", "5")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": MsgTooManyRequests})
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = c.Request.RemoteAddr
		}
	}

	return ip
}
