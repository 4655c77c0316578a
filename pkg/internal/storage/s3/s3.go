// Package s3 实现基于 MinIO / S3 兼容对象存储的媒体后端.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	nlog "github.com/yeisme/mediavault/pkg/log"
)

// Client 包装 MinIO 客户端，实现 backend.Backend.
type Client struct {
	*minio.Client
	bucket string
}

var _ backend.Backend = (*Client)(nil)

// New 初始化 MinIO 客户端，若 bucket 不存在则尝试创建.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	u, err := url.Parse(cfg.GetEndpointURL())
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid s3 endpoint %q", cfg.Endpoint)
	}

	endpoint, secure := u.Host, u.Scheme == "https"

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo(configs.AppName, configs.AppVersion)

	bucket := cfg.BucketName
	if bucket == "" {
		bucket = configs.DefaultS3BucketName
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}

		nlog.Logger().Info().Str("bucket", bucket).Msg("bucket created")
	}

	nlog.Logger().Info().Str("endpoint", u.String()).Str("bucket", bucket).Msg("s3 connected")

	return &Client{Client: cli, bucket: bucket}, nil
}

// Name 后端名称.
func (c *Client) Name() string { return string(configs.BackendS3) }

// Remote 对象存储为远程后端.
func (c *Client) Remote() bool { return true }

// Bucket 返回使用的存储桶.
func (c *Client) Bucket() string { return c.bucket }

// List 列出 folder/ 下的直接子对象.
func (c *Client) List(ctx context.Context, folder string) ([]backend.ObjectInfo, error) {
	prefix := strings.TrimSuffix(folder, "/") + "/"
	out := []backend.ObjectInfo{}

	for obj := range c.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, mapError(obj.Err)
		}

		// 公共前缀（子目录）
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}

		out = append(out, backend.ObjectInfo{
			Key:          obj.Key,
			Name:         path.Base(obj.Key),
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			LastModified: obj.LastModified,
		})
	}

	return out, nil
}

// Stat 获取对象信息.
func (c *Client) Stat(ctx context.Context, key string) (backend.ObjectInfo, error) {
	st, err := c.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return backend.ObjectInfo{}, mapError(err)
	}

	return toInfo(st), nil
}

// Open 打开对象；GetObject 是惰性的，这里通过 Stat 提前暴露 NoSuchKey.
func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, backend.ObjectInfo, error) {
	obj, err := c.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, backend.ObjectInfo{}, mapError(err)
	}

	st, err := obj.Stat()
	if err != nil {
		obj.Close()

		return nil, backend.ObjectInfo{}, mapError(err)
	}

	return obj, toInfo(st), nil
}

// Put 上传对象.
func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := c.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})

	return mapError(err)
}

// Remove 删除对象；S3 删除不存在的键不会报错，先 Stat 以返回 ErrNotFound.
func (c *Client) Remove(ctx context.Context, key string) error {
	if _, err := c.Stat(ctx, key); err != nil {
		return err
	}

	return mapError(c.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}))
}

// SignedURL 生成预签名 GET URL.
func (c *Client) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := c.PresignedGetObject(ctx, c.bucket, key, expiry, nil)
	if err != nil {
		return "", mapError(err)
	}

	return u.String(), nil
}

// HealthCheck 检查存储桶可访问.
func (c *Client) HealthCheck(ctx context.Context) error {
	ok, err := c.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("bucket %s not found", c.bucket)
	}

	return nil
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}

func toInfo(st minio.ObjectInfo) backend.ObjectInfo {
	return backend.ObjectInfo{
		Key:          st.Key,
		Name:         path.Base(st.Key),
		Size:         st.Size,
		ContentType:  st.ContentType,
		LastModified: st.LastModified,
	}
}

// mapError 将 MinIO 错误映射到 backend 哨兵错误.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	resp := minio.ToErrorResponse(err)

	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %v", backend.ErrNotFound, err)
	case resp.Code == "AccessDenied" || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %v", backend.ErrPermission, err)
	}

	return err
}
