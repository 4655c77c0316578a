package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/mediavault/pkg/cache"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/log"
)

const (
	DefaultMaxBodyBytes = 4 << 20
	defaultTTL          = 30 * time.Second
	bypassHeader        = "X-Cache-Bypass"
)

// 不写入缓存的响应头.
var uncachedHeaders = map[string]struct{}{
	"Set-Cookie":       {},
	"X-Cache":          {},
	"Age":              {},
	"Date":             {},
	"Content-Encoding": {},
	"Content-Length":   {},
	"Vary":             {},
}

// CacheConfig 列表缓存中间件配置.
type CacheConfig struct {
	Cache        *appcache.Cache
	TTL          time.Duration
	Skipper      func(*gin.Context) bool // 返回 true 跳过缓存
	MaxBodyBytes int                     // 超过该大小的响应不缓存 (0=不限制)
}

// DefaultCacheConfig 返回一份默认配置.
func DefaultCacheConfig(c *appcache.Cache, ttl time.Duration) CacheConfig {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return CacheConfig{Cache: c, TTL: ttl, MaxBodyBytes: DefaultMaxBodyBytes}
}

// CacheMiddleware 缓存画廊列表的 GET 响应.
//
// 键统一带 service.GalleryCachePrefix 前缀，上传、删除和消息队列事件通过前缀整体失效.
// 支持 If-None-Match/304，命中时返回 X-Cache: HIT；缓存读写失败只记日志不影响响应.
func CacheMiddleware(cfg CacheConfig) gin.HandlerFunc {
	if cfg.Cache == nil {
		return func(c *gin.Context) { c.Next() }
	}

	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}

	return func(c *gin.Context) {
		if shouldBypass(c, cfg) {
			c.Next()
			return
		}

		key := CacheKey(c)
		if serveFromCache(c, cfg, key) {
			return
		}

		c.Header("X-Cache", "MISS")

		bw := &bodyCaptureWriter{ResponseWriter: c.Writer, max: cfg.MaxBodyBytes}
		c.Writer = bw
		c.Next()
		store(c, cfg, key, bw)
	}
}

// responseCacheEntry 序列化存储结构.
type responseCacheEntry struct {
	Status   int               `json:"s"`
	Header   map[string]string `json:"h,omitempty"`
	Body     []byte            `json:"b,omitempty"`
	ETag     string            `json:"e,omitempty"`
	StoredAt int64             `json:"t"`
}

// CacheKey 由路由模板、路径参数与排序后的查询串生成，形如 gallery:<xxhash>.
func CacheKey(c *gin.Context) string {
	var b strings.Builder

	full := c.FullPath()
	if full == "" {
		full = c.Request.URL.Path
	}

	b.WriteString(full)

	for _, p := range c.Params {
		b.WriteByte('|')
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(strings.ToLower(p.Value))
	}

	if q := c.Request.URL.Query(); len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}

		slices.Sort(keys)
		b.WriteByte('?')

		for i, k := range keys {
			if i > 0 {
				b.WriteByte('&')
			}

			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strings.Join(q[k], ","))
		}
	}

	return fmt.Sprintf("%s%x", service.GalleryCachePrefix, xxhash.Sum64String(b.String()))
}

// bodyCaptureWriter 包装响应写入用于捕获 body.
type bodyCaptureWriter struct {
	gin.ResponseWriter

	buf       bytes.Buffer
	max       int
	truncated bool
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	switch {
	case w.truncated:
	case w.max > 0 && w.buf.Len()+len(b) > w.max:
		w.truncated = true
		w.buf.Reset()
	default:
		w.buf.Write(b)
	}

	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func shouldBypass(c *gin.Context, cfg CacheConfig) bool {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		return true
	}

	if c.GetHeader(bypassHeader) != "" {
		return true
	}

	return cfg.Skipper != nil && cfg.Skipper(c)
}

// serveFromCache 尝试从缓存提供响应; 成功返回 true.
func serveFromCache(c *gin.Context, cfg CacheConfig, key string) bool {
	entry, err := appcache.Get[responseCacheEntry](c.Request.Context(), cfg.Cache, key)
	if err != nil {
		if !appcache.IsMiss(err) {
			log.Logger().Warn().Err(err).Str("key", key).Msg("listing cache read failed")
		}

		return false
	}

	h := c.Writer.Header()
	for k, v := range entry.Header {
		h.Set(k, v)
	}

	if entry.ETag != "" {
		h.Set("ETag", entry.ETag)
	}

	h.Set("Age", fmt.Sprintf("%.0f", time.Since(time.Unix(0, entry.StoredAt)).Seconds()))
	h.Set("X-Cache", "HIT")

	if entry.ETag != "" && c.GetHeader("If-None-Match") == entry.ETag {
		c.AbortWithStatus(http.StatusNotModified)
		return true
	}

	c.Status(entry.Status)

	if c.Request.Method != http.MethodHead {
		_, _ = c.Writer.Write(entry.Body)
	}

	c.Abort()

	return true
}

// store 只缓存 200 且未被截断的响应.
func store(c *gin.Context, cfg CacheConfig, key string, bw *bodyCaptureWriter) {
	status := c.Writer.Status()
	if status != http.StatusOK || bw.truncated || c.Request.Method == http.MethodHead {
		return
	}

	if strings.Contains(strings.ToLower(c.Writer.Header().Get("Cache-Control")), "no-store") {
		return
	}

	body := bytes.Clone(bw.buf.Bytes())
	hdr := make(map[string]string)

	for k, v := range c.Writer.Header() {
		if _, skip := uncachedHeaders[k]; skip || len(v) == 0 {
			continue
		}

		hdr[k] = v[0]
	}

	etag := c.Writer.Header().Get("ETag")
	if etag == "" {
		etag = fmt.Sprintf("%q", fmt.Sprintf("%x", xxhash.Sum64(body)))
	}

	entry := responseCacheEntry{Status: status, Header: hdr, Body: body, ETag: etag, StoredAt: time.Now().UnixNano()}

	// 响应已写出，请求被取消也要完成写入
	if err := appcache.Set(context.WithoutCancel(c.Request.Context()), cfg.Cache, key, entry, cfg.TTL); err != nil {
		log.Logger().Warn().Err(err).Str("key", key).Msg("listing cache write failed")
	}
}
