// Package backend 定义媒体存储后端的统一接口与通用辅助函数.
//
// 对象键统一为 "<folder>/<name>" 形式，folder 为分类目录（images、videos、documents、audios）.
// 每个对象可以有一个伴随 JSON（"<key>.json"），保存描述、显示名和外链等元数据.
package backend

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotFound 对象不存在.
	ErrNotFound = errors.New("object not found")
	// ErrPermission 后端拒绝访问.
	ErrPermission = errors.New("permission denied")
	// ErrInvalidKey 对象键非法（为空、包含 NUL 或越出根目录）.
	ErrInvalidKey = errors.New("invalid object key")
)

// ObjectInfo 对象的基础信息.
type ObjectInfo struct {
	Key          string    // 完整键，例如 images/a.png
	Name         string    // 目录下的文件名，例如 a.png
	Size         int64     // 字节数
	ContentType  string    // 后端记录的类型，可能为空
	LastModified time.Time // 零值表示未知
}

// Backend 媒体存储后端.
type Backend interface {
	// Name 后端名称，例如 local、s3、supabase.
	Name() string
	// Remote 是否为远程对象存储，远程后端的代理读取走短期签名 URL.
	Remote() bool
	// List 列出目录下的直接子对象（包含伴随 JSON），目录不存在时返回空列表.
	List(ctx context.Context, folder string) ([]ObjectInfo, error)
	// Stat 获取单个对象信息.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Open 打开对象内容，调用方负责关闭.
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Put 写入对象，size 未知时传 -1.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Remove 删除对象，不存在时返回 ErrNotFound.
	Remove(ctx context.Context, key string) error
	// SignedURL 返回可直接访问的 URL：远程后端为限时签名 URL，本地后端为同源静态路径.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// HealthCheck 检查后端可用性.
	HealthCheck(ctx context.Context) error
	// Close 释放资源.
	Close() error
}

// JoinKey 拼接目录与文件名.
func JoinKey(folder, name string) string {
	return path.Join(folder, name)
}

// CompanionSuffix 伴随 JSON 的后缀.
const CompanionSuffix = ".json"

// CompanionKey 返回对象的伴随 JSON 键.
func CompanionKey(key string) string {
	return key + CompanionSuffix
}

// IsCompanion 是否为伴随 JSON（大小写不敏感）.
func IsCompanion(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), CompanionSuffix)
}

// IsNotFound 判断错误是否为对象不存在.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermission 判断错误是否为权限不足.
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}
