package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediavault/pkg/cache"
	"github.com/yeisme/mediavault/pkg/configs"
	ctxPkg "github.com/yeisme/mediavault/pkg/context"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/storage/kv"
	"github.com/yeisme/mediavault/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(e *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	return w
}

// TestSessionAndRequireAdmin 测试会话解析与管理员校验.
func TestSessionAndRequireAdmin(t *testing.T) {
	auth, err := service.NewAuthService(configs.AuthConfig{
		AdminUsername: "admin",
		AdminPassword: "pw",
		Secret:        "mw-test",
		CookieName:    "mv_session",
	}, nil)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	e := gin.New()
	e.Use(middleware.SessionMiddleware(auth))
	e.GET("/who", func(c *gin.Context) {
		c.String(http.StatusOK, ctxPkg.GetSession(c.Request.Context()).Subject)
	})
	e.GET("/admin", middleware.RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if w := serve(e, httptest.NewRequest(http.MethodGet, "/admin", nil)); w.Code != http.StatusUnauthorized ||
		!strings.Contains(w.Body.String(), middleware.MsgAdminRequired) {
		t.Errorf("anonymous admin = %d %s", w.Code, w.Body)
	}

	token, err := auth.Login("admin", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "mv_session", Value: token})

	if w := serve(e, req); w.Code != http.StatusNoContent {
		t.Errorf("cookie admin = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	if w := serve(e, req); w.Body.String() != "admin" {
		t.Errorf("bearer subject = %q", w.Body)
	}

	// 无效令牌按匿名处理，不中断请求
	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.AddCookie(&http.Cookie{Name: "mv_session", Value: "garbage"})

	if w := serve(e, req); w.Code != http.StatusOK || w.Body.String() != "" {
		t.Errorf("invalid token = %d %q", w.Code, w.Body)
	}
}

// TestCacheMiddleware 测试列表缓存的 MISS/HIT/304 与绕过.
func TestCacheMiddleware(t *testing.T) {
	c := cache.NewCache(kv.NewMemoryClient())

	var calls atomic.Int32

	e := gin.New()
	e.GET("/gallery/:category", middleware.CacheMiddleware(middleware.DefaultCacheConfig(c, time.Minute)), func(ctx *gin.Context) {
		calls.Add(1)
		ctx.Header("Set-Cookie", "x=1")
		ctx.JSON(http.StatusOK, gin.H{"category": ctx.Param("category"), "q": ctx.Query("q")})
	})
	e.GET("/broken", middleware.CacheMiddleware(middleware.DefaultCacheConfig(c, time.Minute)), func(ctx *gin.Context) {
		calls.Add(1)
		ctx.Status(http.StatusInternalServerError)
	})

	get := func(target string, header ...string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		for i := 0; i+1 < len(header); i += 2 {
			req.Header.Set(header[i], header[i+1])
		}

		return serve(e, req)
	}

	w := get("/gallery/Photos?q=cat")
	if w.Header().Get("X-Cache") != "MISS" || calls.Load() != 1 {
		t.Fatalf("first = %q calls=%d", w.Header().Get("X-Cache"), calls.Load())
	}

	// 分类参数大小写不敏感
	w = get("/gallery/photos?q=cat")
	if w.Header().Get("X-Cache") != "HIT" || calls.Load() != 1 {
		t.Fatalf("second = %q calls=%d", w.Header().Get("X-Cache"), calls.Load())
	}

	if w.Header().Get("Set-Cookie") != "" {
		t.Error("Set-Cookie replayed from cache")
	}

	if !strings.Contains(w.Body.String(), `"Photos"`) || w.Header().Get("Content-Type") == "" {
		t.Errorf("cached body = %s headers=%v", w.Body, w.Header())
	}

	if w := get("/gallery/photos?q=cat", "If-None-Match", w.Header().Get("ETag")); w.Code != http.StatusNotModified {
		t.Errorf("If-None-Match = %d", w.Code)
	}

	if w := get("/gallery/photos?q=dog"); w.Header().Get("X-Cache") != "MISS" {
		t.Error("different query served from cache")
	}

	if get("/gallery/photos?q=cat", "X-Cache-Bypass", "1"); calls.Load() != 3 {
		t.Errorf("bypass calls = %d", calls.Load())
	}

	if n, err := service.InvalidateListings(t.Context(), c); err != nil || n != 2 {
		t.Errorf("InvalidateListings = %d, %v", n, err)
	}

	get("/broken")
	get("/broken")

	if calls.Load() != 5 {
		t.Errorf("5xx response cached: calls=%d", calls.Load())
	}
}

// TestCacheMiddlewareNil 测试未配置缓存时直接放行.
func TestCacheMiddlewareNil(t *testing.T) {
	e := gin.New()
	e.GET("/x", middleware.CacheMiddleware(middleware.CacheConfig{}), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := serve(e, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Body.String() != "ok" || w.Header().Get("X-Cache") != "" {
		t.Errorf("nil cache = %q %v", w.Body, w.Header())
	}
}

// TestRateLimit 测试按 IP 限流.
func TestRateLimit(t *testing.T) {
	e := gin.New()
	e.POST("/login", middleware.RateLimitMiddleware(configs.RateLimitConfig{
		Enabled: true,
		RPS:     0.001,
		Burst:   2,
		Key:     "ip",
	}), func(c *gin.Context) { c.Status(http.StatusOK) })

	login := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"

		return serve(e, req)
	}

	for i := range 2 {
		if w := login("10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("attempt %d = %d", i, w.Code)
		}
	}

	w := login("10.0.0.1")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" ||
		!strings.Contains(w.Body.String(), middleware.MsgTooManyRequests) {
		t.Errorf("limited = %d %v %s", w.Code, w.Header(), w.Body)
	}

	if w := login("10.0.0.2"); w.Code != http.StatusOK {
		t.Errorf("other ip = %d", w.Code)
	}
}

// TestCircuitBreaker 测试连续 5xx 后熔断.
func TestCircuitBreaker(t *testing.T) {
	e := gin.New()
	e.GET("/x", middleware.CircuitBreakerMiddleware("test", configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       2,
		IntervalSeconds:   60,
		TimeoutSeconds:    60,
		MaxRequestsInHalf: 1,
	}), func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for range 2 {
		serve(e, httptest.NewRequest(http.MethodGet, "/x", nil))
	}

	if w := serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)); w.Code != http.StatusServiceUnavailable {
		t.Errorf("open breaker = %d", w.Code)
	}
}

// TestPrometheusMiddleware 测试未匹配路由不会中断请求.
func TestPrometheusMiddleware(t *testing.T) {
	e := gin.New()
	e.Use(middleware.PrometheusMiddleware(), middleware.TracingMiddleware(), middleware.GinLoggerMiddleware())
	e.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil)); w.Code != http.StatusOK {
		t.Errorf("/ok = %d", w.Code)
	}

	if w := serve(e, httptest.NewRequest(http.MethodGet, "/missing", nil)); w.Code != http.StatusNotFound {
		t.Errorf("/missing = %d", w.Code)
	}
}
