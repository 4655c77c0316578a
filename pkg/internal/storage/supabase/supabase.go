// Package supabase 通过 Supabase Storage REST 接口实现媒体后端.
//
// 使用 service role key 作为 Bearer 令牌，列表走 object/list，签名走 object/sign.
// 传输层是 gokit httpclient：JSON 接口用 rest 适配器，对象读写用流式请求.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/gokit/httpclient"
	"github.com/kbukum/gokit/httpclient/rest"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	nlog "github.com/yeisme/mediavault/pkg/log"
)

const (
	// listPageSize 单次列表请求的条目数.
	listPageSize = 1000
	// requestTimeout 非流式请求的超时；流式上传下载只受 ctx 约束.
	requestTimeout = 30 * time.Second
)

// Client Supabase Storage 客户端.
type Client struct {
	baseURL    string
	bucket     string
	serviceKey string
	http       *httpclient.Client
	rest       *rest.Client
}

var _ backend.Backend = (*Client)(nil)

// New 创建客户端. 幂等请求带重试，404 等确定性错误不重试.
func New(cfg *configs.SupabaseConfig) (*Client, error) {
	if cfg.URL == "" || cfg.ServiceRoleKey == "" {
		return nil, fmt.Errorf("supabase: url and service_role_key are required")
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = configs.DefaultSupabaseBucket
	}

	baseURL := strings.TrimRight(cfg.URL, "/") + "/storage/v1"

	hc, err := httpclient.New(httpclient.Config{
		BaseURL: baseURL,
		Timeout: requestTimeout,
		Auth:    httpclient.BearerAuth(cfg.ServiceRoleKey),
		Headers: map[string]string{"apikey": cfg.ServiceRoleKey},
		Retry:   httpclient.DefaultRetryConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("supabase: %w", err)
	}

	nlog.Logger().Info().Str("url", cfg.URL).Str("bucket", bucket).Msg("supabase storage configured")

	return &Client{
		baseURL:    baseURL,
		bucket:     bucket,
		serviceKey: cfg.ServiceRoleKey,
		http:       hc,
		rest:       rest.NewFromClient(hc),
	}, nil
}

// Name 后端名称.
func (c *Client) Name() string { return string(configs.BackendSupabase) }

// Remote Supabase 为远程后端.
func (c *Client) Remote() bool { return true }

type listRequest struct {
	Prefix string      `json:"prefix"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
	SortBy listSorting `json:"sortBy"`
}

type listSorting struct {
	Column string `json:"column"`
	Order  string `json:"order"`
}

type listItem struct {
	Name      string  `json:"name"`
	ID        *string `json:"id"`
	UpdatedAt string  `json:"updated_at"`
	Metadata  *struct {
		Size         int64  `json:"size"`
		Mimetype     string `json:"mimetype"`
		LastModified string `json:"lastModified"`
	} `json:"metadata"`
}

type signRequest struct {
	ExpiresIn int `json:"expiresIn"`
}

type signResponse struct {
	SignedURL string `json:"signedURL"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// List 分页列出 folder 下的对象，跳过子目录（id 为空）.
func (c *Client) List(ctx context.Context, folder string) ([]backend.ObjectInfo, error) {
	folder = strings.Trim(folder, "/")
	out := []backend.ObjectInfo{}

	for offset := 0; ; offset += listPageSize {
		resp, err := rest.Post[[]listItem](ctx, c.rest, c.path("object/list", c.bucket), listRequest{
			Prefix: folder,
			Limit:  listPageSize,
			Offset: offset,
			SortBy: listSorting{Column: "name", Order: "asc"},
		})
		if err != nil {
			return nil, mapError("list", folder, err)
		}

		items := resp.Data

		for _, it := range items {
			if it.ID == nil || it.Metadata == nil {
				continue
			}

			out = append(out, backend.ObjectInfo{
				Key:          backend.JoinKey(folder, it.Name),
				Name:         it.Name,
				Size:         it.Metadata.Size,
				ContentType:  it.Metadata.Mimetype,
				LastModified: parseTime(it.Metadata.LastModified, it.UpdatedAt),
			})
		}

		if len(items) < listPageSize {
			return out, nil
		}
	}
}

// Stat 通过 HEAD 获取对象信息.
func (c *Client) Stat(ctx context.Context, key string) (backend.ObjectInfo, error) {
	resp, err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodHead,
		Path:   c.path("object", c.bucket, key),
	})
	if err != nil {
		return backend.ObjectInfo{}, mapError("stat", key, err)
	}

	return headerInfo(key, resp.Headers), nil
}

// Open 流式下载对象.
func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, backend.ObjectInfo, error) {
	stream, err := c.http.DoStream(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   c.path("object", c.bucket, key),
	})
	if err != nil {
		return nil, backend.ObjectInfo{}, mapError("open", key, err)
	}

	return stream, headerInfo(key, stream.Headers), nil
}

// Put 上传对象，已存在时覆盖. 请求体只能读一次，因此走不重试的流式请求.
func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	stream, err := c.http.DoStream(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    c.path("object", c.bucket, key),
		Headers: map[string]string{"Content-Type": contentType, "x-upsert": "true"},
		Body:    r,
		Auth:    c.uploadAuth(size),
	})
	if err != nil {
		return mapError("put", key, err)
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(stream, 4096))

	return stream.Close()
}

// uploadAuth 在鉴权钩子里补上 ContentLength，避免已知大小的上传退化为分块传输.
func (c *Client) uploadAuth(size int64) *httpclient.AuthConfig {
	return httpclient.CustomAuth(func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)

		if size >= 0 {
			req.ContentLength = size
		}
	})
}

// Remove 删除对象.
func (c *Client) Remove(ctx context.Context, key string) error {
	if _, err := rest.Delete[messageResponse](ctx, c.rest, c.path("object", c.bucket, key)); err != nil {
		return mapError("remove", key, err)
	}

	return nil
}

// SignedURL 生成限时签名 URL.
func (c *Client) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	secs := int(expiry.Seconds())
	if secs <= 0 {
		secs = 60
	}

	resp, err := rest.Post[signResponse](ctx, c.rest, c.path("object/sign", c.bucket, key), signRequest{ExpiresIn: secs})
	if err != nil {
		return "", mapError("sign", key, err)
	}

	signed := resp.Data.SignedURL
	if signed == "" {
		return "", fmt.Errorf("supabase: sign returned empty URL")
	}

	// 返回的是相对路径
	if !strings.HasPrefix(signed, "http") {
		return c.baseURL + signed, nil
	}

	return signed, nil
}

// HealthCheck 读取存储桶信息.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := rest.Get[map[string]any](ctx, c.rest, c.path("bucket", c.bucket)); err != nil {
		return mapError("bucket", c.bucket, err)
	}

	return nil
}

// Close 关闭空闲连接.
func (c *Client) Close() error {
	c.http.Unwrap().CloseIdleConnections()

	return nil
}

// path 拼接相对 BaseURL 的接口路径，对象键逐段转义.
func (c *Client) path(endpoint, bucket string, key ...string) string {
	p := endpoint + "/" + url.PathEscape(bucket)

	for _, k := range key {
		for _, seg := range strings.Split(k, "/") {
			p += "/" + url.PathEscape(seg)
		}
	}

	return p
}

// mapError 把 httpclient 的分类错误映射为 backend 哨兵错误.
// Supabase 对不存在的对象有时返回 400 + not_found，HEAD 的 400 没有正文.
func mapError(op, key string, err error) error {
	var he *httpclient.Error
	if !errors.As(err, &he) {
		return fmt.Errorf("supabase: %s %s: %w", op, key, err)
	}

	body := strings.ToLower(string(he.Body))

	switch {
	case he.Code == httpclient.ErrCodeNotFound,
		he.StatusCode == http.StatusBadRequest &&
			(op == "stat" || strings.Contains(body, "not_found") || strings.Contains(body, "not found")):
		return fmt.Errorf("%w: supabase %s %s: status %d", backend.ErrNotFound, op, key, he.StatusCode)
	case he.Code == httpclient.ErrCodeAuth:
		return fmt.Errorf("%w: supabase %s %s: status %d", backend.ErrPermission, op, key, he.StatusCode)
	case he.StatusCode > 0:
		return fmt.Errorf("supabase: %s %s: status %d: %s", op, key, he.StatusCode, strings.TrimSpace(string(he.Body)))
	default:
		return fmt.Errorf("supabase: %s %s: %w", op, key, err)
	}
}

// headerInfo 从扁平化的响应头构造对象信息，大小未知时为 -1.
func headerInfo(key string, h map[string]string) backend.ObjectInfo {
	size := int64(-1)
	if v := h["Content-Length"]; v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			size = n
		}
	}

	var mod time.Time
	if v := h["Last-Modified"]; v != "" {
		mod, _ = http.ParseTime(v)
	}

	return backend.ObjectInfo{
		Key:          key,
		Name:         path.Base(key),
		Size:         size,
		ContentType:  h["Content-Type"],
		LastModified: mod,
	}
}

func parseTime(values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}

		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}

	return time.Time{}
}
