package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	"github.com/yeisme/mediavault/pkg/internal/storage/local"
)

func newLocal(t *testing.T) (*local.Backend, string) {
	t.Helper()

	root := t.TempDir()

	b, err := local.New(configs.LocalStorageConfig{Root: root, URLPrefix: "/uploads"})
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}

	return b, root
}

func put(t *testing.T, b backend.Backend, key, body string) {
	t.Helper()

	if err := b.Put(context.Background(), key, strings.NewReader(body), int64(len(body)), ""); err != nil {
		t.Fatalf("Put %s: %v", key, err)
	}
}

func testStorageConfig() *configs.StorageConfig {
	return &configs.StorageConfig{
		ProbeTimeout:     200 * time.Millisecond,
		ProbeConcurrency: 4,
	}
}

// memBackend 内存后端，可注入签名失败与阻塞读取.
type memBackend struct {
	mu      sync.Mutex
	objects map[string]memObject
	remote  bool
	signErr error
	// 签名 URL 前缀，为空时使用 https://signed.example.com/
	signBase string
	// 读取这些键时阻塞直到 ctx 结束
	hang map[string]bool
	// opens 每个键被 Open 的次数
	opens map[string]int
}

type memObject struct {
	data    []byte
	ct      string
	modTime time.Time
}

var _ backend.Backend = (*memBackend)(nil)

func newMem() *memBackend {
	return &memBackend{objects: map[string]memObject{}, hang: map[string]bool{}, opens: map[string]int{}}
}

func (m *memBackend) set(key, body string, mod time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = memObject{data: []byte(body), modTime: mod}
}

func (m *memBackend) Name() string { return "memory" }
func (m *memBackend) Remote() bool { return m.remote }
func (m *memBackend) Close() error { return nil }
func (m *memBackend) HealthCheck(context.Context) error { return nil }

func (m *memBackend) info(key string, o memObject) backend.ObjectInfo {
	return backend.ObjectInfo{
		Key:          key,
		Name:         path.Base(key),
		Size:         int64(len(o.data)),
		ContentType:  o.ct,
		LastModified: o.modTime,
	}
}

func (m *memBackend) List(_ context.Context, folder string) ([]backend.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []backend.ObjectInfo{}

	for k, o := range m.objects {
		if path.Dir(k) == folder {
			out = append(out, m.info(k, o))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out, nil
}

func (m *memBackend) Stat(_ context.Context, key string) (backend.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.objects[key]
	if !ok {
		return backend.ObjectInfo{}, backend.ErrNotFound
	}

	return m.info(key, o), nil
}

func (m *memBackend) Open(ctx context.Context, key string) (io.ReadCloser, backend.ObjectInfo, error) {
	m.mu.Lock()
	hang := m.hang[key]
	o, ok := m.objects[key]
	m.opens[key]++
	m.mu.Unlock()

	if hang {
		<-ctx.Done()

		return nil, backend.ObjectInfo{}, ctx.Err()
	}

	if !ok {
		return nil, backend.ObjectInfo{}, backend.ErrNotFound
	}

	return io.NopCloser(bytes.NewReader(o.data)), m.info(key, o), nil
}

func (m *memBackend) Put(_ context.Context, key string, r io.Reader, _ int64, ct string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = memObject{data: data, ct: ct, modTime: time.Now()}

	return nil
}

func (m *memBackend) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; !ok {
		return backend.ErrNotFound
	}

	delete(m.objects, key)

	return nil
}

func (m *memBackend) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if m.signErr != nil {
		return "", m.signErr
	}

	base := m.signBase
	if base == "" {
		base = "https://signed.example.com/"
	}

	return base + key + "?token=t", nil
}

var errSign = errors.New("sign failed")
