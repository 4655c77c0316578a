package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/gokit/httpclient"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	"github.com/yeisme/mediavault/pkg/internal/types"
)

const (
	// RemoteCacheControl 远程后端代理响应的缓存策略.
	RemoteCacheControl = "public, max-age=60, stale-while-revalidate=300"
	// LocalCacheControl 本地后端代理响应的缓存策略.
	LocalCacheControl = "public, max-age=60"

	defaultProxyTimeout = 60 * time.Second
)

// proxyFilePattern 代理只接受这三个目录.
var proxyFilePattern = regexp.MustCompile(`(?i)^(images|videos|documents)/.+$`)

// ProxyObject 代理读取结果，调用方负责关闭 Body.
type ProxyObject struct {
	Body         io.ReadCloser
	ContentType  string
	Size         int64 // -1 表示未知
	CacheControl string
}

// ProxyService 同源读取存储对象，绕开浏览器的跨域与类型限制.
type ProxyService struct {
	backend backend.Backend
	cfg     *configs.StorageConfig
	client  *httpclient.Client
}

// NewProxyService 创建 ProxyService，client 为 nil 时使用默认的 httpclient.
func NewProxyService(b backend.Backend, cfg *configs.StorageConfig, client *httpclient.Client) *ProxyService {
	if cfg == nil {
		cfg = &configs.StorageConfig{}
	}

	if client == nil {
		// 默认配置必然通过校验
		client, _ = httpclient.New(httpclient.Config{Timeout: defaultProxyTimeout})
	}

	return &ProxyService{backend: b, cfg: cfg, client: client}
}

// Proxiable 是否可以通过代理读取.
func Proxiable(file string) bool {
	_, err := ProxyKey(file)

	return err == nil
}

// ProxyKey 校验 file 参数并返回对象键，目录部分统一为小写.
func ProxyKey(file string) (string, error) {
	if !proxyFilePattern.MatchString(file) {
		return "", fmt.Errorf("%w: invalid file parameter", ErrValidation)
	}

	if strings.ContainsAny(file, "\\\x00") {
		return "", fmt.Errorf("%w: invalid file parameter", ErrValidation)
	}

	folder, name, _ := strings.Cut(file, "/")
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: invalid file parameter", ErrValidation)
		}
	}

	return strings.ToLower(folder) + "/" + name, nil
}

// Open 打开代理对象.
//
// 远程后端通过短期签名 URL 在服务端拉取，优先使用上游返回的 Content-Type；
// 本地后端直接读文件，Content-Type 按扩展名推断.
func (p *ProxyService) Open(ctx context.Context, file string) (*ProxyObject, error) {
	key, err := ProxyKey(file)
	if err != nil {
		return nil, err
	}

	if p.backend.Remote() {
		return p.openRemote(ctx, key)
	}

	rc, info, err := p.backend.Open(ctx, key)
	if err != nil {
		return nil, err
	}

	return &ProxyObject{
		Body:         rc,
		ContentType:  types.GuessMIME(key),
		Size:         info.Size,
		CacheControl: LocalCacheControl,
	}, nil
}

func (p *ProxyService) openRemote(ctx context.Context, key string) (*ProxyObject, error) {
	signed, err := p.backend.SignedURL(ctx, key, p.cfg.GetProxyURLExpiry())
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", key, err)
	}

	// 流式响应不受客户端超时约束，整体时长由 defaultProxyTimeout 限定
	ctx, cancel := context.WithTimeout(ctx, defaultProxyTimeout)

	resp, err := p.client.DoStream(ctx, httpclient.Request{Method: http.MethodGet, Path: signed})
	if err != nil {
		cancel()

		var he *httpclient.Error
		if errors.As(err, &he) && he.StatusCode > 0 {
			return nil, &UpstreamError{StatusCode: he.StatusCode}
		}

		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}

	ct := resp.Headers["Content-Type"]
	if ct == "" {
		ct = types.GuessMIME(key)
	}

	size := int64(-1)
	if n, err := strconv.ParseInt(resp.Headers["Content-Length"], 10, 64); err == nil {
		size = n
	}

	return &ProxyObject{
		Body:         &cancelBody{ReadCloser: resp, cancel: cancel},
		ContentType:  ct,
		Size:         size,
		CacheControl: RemoteCacheControl,
	}, nil
}

// cancelBody 关闭响应时一并释放拉取上下文.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()

	return err
}
