package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	"github.com/yeisme/mediavault/pkg/internal/types"
)

// ListEntries 列出目录下的媒体条目，过滤伴随 JSON.
func ListEntries(ctx context.Context, b Backend, folder string) ([]ObjectInfo, error) {
	objs, err := b.List(ctx, folder)
	if err != nil {
		return nil, err
	}

	out := objs[:0]

	for _, o := range objs {
		if IsCompanion(o.Name) {
			continue
		}

		out = append(out, o)
	}

	return out, nil
}

// FetchBytes 读取对象内容；limit > 0 时最多读取 limit 字节.
func FetchBytes(ctx context.Context, b Backend, key string, limit int64) ([]byte, error) {
	rc, _, err := b.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	return data, nil
}

// FetchText 以文本读取对象内容.
func FetchText(ctx context.Context, b Backend, key string, limit int64) (string, error) {
	data, err := FetchBytes(ctx, b, key, limit)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// maxCompanionBytes 伴随 JSON 的读取上限.
const maxCompanionBytes = 64 * 1024

// ReadCompanion 读取并解析对象的伴随 JSON；不存在时返回 ErrNotFound.
func ReadCompanion(ctx context.Context, b Backend, key string) (*types.Companion, error) {
	data, err := FetchBytes(ctx, b, CompanionKey(key), maxCompanionBytes)
	if err != nil {
		return nil, err
	}

	var c types.Companion
	if err := sonic.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse companion %s: %w", key, err)
	}

	return &c, nil
}

// WriteCompanion 写入对象的伴随 JSON.
func WriteCompanion(ctx context.Context, b Backend, key string, c *types.Companion) error {
	data, err := sonic.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal companion: %w", err)
	}

	return b.Put(ctx, CompanionKey(key), bytes.NewReader(data), int64(len(data)), "application/json")
}

// Exists 判断对象是否存在.
func Exists(ctx context.Context, b Backend, key string) (bool, error) {
	_, err := b.Stat(ctx, key)
	if err == nil {
		return true, nil
	}

	if IsNotFound(err) {
		return false, nil
	}

	return false, err
}

// Copy 在同一后端内复制对象.
func Copy(ctx context.Context, b Backend, src, dst string) error {
	rc, info, err := b.Open(ctx, src)
	if err != nil {
		return err
	}
	defer rc.Close()

	ct := info.ContentType
	if ct == "" {
		ct = types.GuessMIME(dst)
	}

	return b.Put(ctx, dst, rc, info.Size, ct)
}
