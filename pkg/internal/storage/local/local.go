// Package local 实现基于本地文件系统的媒体存储后端.
//
// 对象键映射为 Root 下的相对路径，写入采用临时文件加重命名，保证读者不会看到半写入的文件.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	"github.com/yeisme/mediavault/pkg/internal/types"
	nlog "github.com/yeisme/mediavault/pkg/log"
)

// tempPrefix 写入中的临时文件前缀，列表时跳过.
const tempPrefix = ".mv-tmp-"

// Backend 本地文件系统后端.
type Backend struct {
	root      string
	urlPrefix string
}

var _ backend.Backend = (*Backend)(nil)

// New 创建本地后端，根目录不存在时自动创建.
func New(cfg configs.LocalStorageConfig) (*Backend, error) {
	root := cfg.Root
	if root == "" {
		root = configs.DefaultLocalRoot
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve local root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create local root: %w", err)
	}

	prefix := strings.TrimRight(cfg.URLPrefix, "/")
	if prefix == "" {
		prefix = configs.DefaultLocalURLPrefix
	}

	nlog.Logger().Info().Str("root", abs).Str("url_prefix", prefix).Msg("local storage ready")

	return &Backend{root: abs, urlPrefix: prefix}, nil
}

// Name 后端名称.
func (b *Backend) Name() string { return string(configs.BackendLocal) }

// Remote 本地后端直接读文件.
func (b *Backend) Remote() bool { return false }

// Root 返回根目录绝对路径，用于挂载静态文件服务.
func (b *Backend) Root() string { return b.root }

// URLPrefix 返回静态访问前缀.
func (b *Backend) URLPrefix() string { return b.urlPrefix }

// resolve 校验键并返回绝对路径，拒绝越出根目录的键.
func (b *Backend) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "\x00") {
		return "", backend.ErrInvalidKey
	}

	p := filepath.Join(b.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, b.root+string(filepath.Separator)) {
		return "", backend.ErrInvalidKey
	}

	return p, nil
}

// List 列出目录下的文件，目录不存在时返回空列表.
func (b *Backend) List(ctx context.Context, folder string) ([]backend.ObjectInfo, error) {
	dir, err := b.resolve(folder)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []backend.ObjectInfo{}, nil
		}

		return nil, mapError(err)
	}

	out := make([]backend.ObjectInfo, 0, len(entries))

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if e.IsDir() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}

		fi, err := e.Info()
		if err != nil {
			// 列表期间被删除
			continue
		}

		out = append(out, toInfo(backend.JoinKey(folder, e.Name()), fi))
	}

	return out, nil
}

// Stat 获取文件信息.
func (b *Backend) Stat(_ context.Context, key string) (backend.ObjectInfo, error) {
	p, err := b.resolve(key)
	if err != nil {
		return backend.ObjectInfo{}, err
	}

	fi, err := os.Stat(p)
	if err != nil {
		return backend.ObjectInfo{}, mapError(err)
	}

	if fi.IsDir() {
		return backend.ObjectInfo{}, backend.ErrNotFound
	}

	return toInfo(key, fi), nil
}

// Open 打开文件.
func (b *Backend) Open(_ context.Context, key string) (io.ReadCloser, backend.ObjectInfo, error) {
	p, err := b.resolve(key)
	if err != nil {
		return nil, backend.ObjectInfo{}, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, backend.ObjectInfo{}, mapError(err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, backend.ObjectInfo{}, mapError(err)
	}

	if fi.IsDir() {
		f.Close()

		return nil, backend.ObjectInfo{}, backend.ErrNotFound
	}

	return f, toInfo(key, fi), nil
}

// Put 原子写入文件：先写同目录临时文件，Sync 后重命名.
func (b *Backend) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := b.resolve(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return mapError(err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return mapError(err)
	}

	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("write %s: %w", key, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return mapError(err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return mapError(err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)

		return mapError(err)
	}

	if err := os.Rename(tmpPath, p); err != nil {
		os.Remove(tmpPath)

		return mapError(err)
	}

	return nil
}

// Remove 删除文件.
func (b *Backend) Remove(_ context.Context, key string) error {
	p, err := b.resolve(key)
	if err != nil {
		return err
	}

	return mapError(os.Remove(p))
}

// SignedURL 本地文件通过静态路由访问，不需要签名.
func (b *Backend) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, err := b.resolve(key); err != nil {
		return "", err
	}

	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}

	return b.urlPrefix + "/" + strings.Join(segs, "/"), nil
}

// HealthCheck 检查根目录是否可访问.
func (b *Backend) HealthCheck(_ context.Context) error {
	fi, err := os.Stat(b.root)
	if err != nil {
		return mapError(err)
	}

	if !fi.IsDir() {
		return fmt.Errorf("local root %s is not a directory", b.root)
	}

	return nil
}

// Close 无资源需要释放.
func (b *Backend) Close() error { return nil }

func toInfo(key string, fi fs.FileInfo) backend.ObjectInfo {
	return backend.ObjectInfo{
		Key:          key,
		Name:         fi.Name(),
		Size:         fi.Size(),
		ContentType:  types.GuessMIME(fi.Name()),
		LastModified: fi.ModTime(),
	}
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", backend.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", backend.ErrPermission, err)
	default:
		return err
	}
}

// ctxReader 在每次读取前检查 context.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
