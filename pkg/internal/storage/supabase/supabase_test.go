package supabase_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	"github.com/yeisme/mediavault/pkg/internal/storage/supabase"
)

// fakeStorage 模拟 Supabase Storage 的最小 REST 子集.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]string
	// listFailures 列表接口在成功前返回 503 的次数
	listFailures int
}

func (f *fakeStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer service-key" {
		w.WriteHeader(http.StatusUnauthorized)

		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p := r.URL.Path

	switch {
	case r.Method == http.MethodPost && p == "/storage/v1/object/list/media":
		if f.listFailures > 0 {
			f.listFailures--
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"prefix":"images"`) {
			_, _ = w.Write([]byte(`[]`))

			return
		}

		_, _ = w.Write([]byte(`[
			{"name":"sub","id":null,"metadata":null},
			{"name":"a.png","id":"1","updated_at":"2024-05-01T10:00:00Z","metadata":{"size":3,"mimetype":"image/png","lastModified":"2024-05-01T10:00:00.000Z"}},
			{"name":"a.png.json","id":"2","metadata":{"size":2,"mimetype":"application/json"}}
		]`))
	case r.Method == http.MethodPost && strings.HasPrefix(p, "/storage/v1/object/sign/media/"):
		key := strings.TrimPrefix(p, "/storage/v1/object/sign/media/")
		_, _ = w.Write([]byte(`{"signedURL":"/object/sign/media/` + key + `?token=abc"}`))
	case r.Method == http.MethodPost && strings.HasPrefix(p, "/storage/v1/object/media/"):
		body, _ := io.ReadAll(r.Body)
		f.objects[strings.TrimPrefix(p, "/storage/v1/object/media/")] = string(body)
		_, _ = w.Write([]byte(`{"Key":"ok"}`))
	case strings.HasPrefix(p, "/storage/v1/object/media/"):
		key := strings.TrimPrefix(p, "/storage/v1/object/media/")

		v, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"statusCode":"404","error":"not_found","message":"Object not found"}`))

			return
		}

		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(v)))
			w.Header().Set("Last-Modified", "Wed, 01 May 2024 10:00:00 GMT")

			return
		}

		if r.Method == http.MethodDelete {
			delete(f.objects, key)
			_, _ = w.Write([]byte(`{}`))

			return
		}

		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(v))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newClient(t *testing.T) *supabase.Client {
	t.Helper()

	c, _ := newClientWith(t, &fakeStorage{objects: map[string]string{}})

	return c
}

func newClientWith(t *testing.T, f *fakeStorage) (*supabase.Client, *fakeStorage) {
	t.Helper()

	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := supabase.New(&configs.SupabaseConfig{URL: srv.URL, ServiceRoleKey: "service-key", Bucket: "media"})
	if err != nil {
		t.Fatalf("supabase.New: %v", err)
	}

	return c, f
}

// TestNewRequiresCredentials 测试缺少配置时报错.
func TestNewRequiresCredentials(t *testing.T) {
	if _, err := supabase.New(&configs.SupabaseConfig{URL: "http://x"}); err == nil {
		t.Fatal("expected error without service key")
	}
}

// TestList 测试列表跳过目录并保留伴随 JSON.
func TestList(t *testing.T) {
	c := newClient(t)

	objs, err := c.List(context.Background(), "images")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(objs) != 2 {
		t.Fatalf("List returned %d objects: %+v", len(objs), objs)
	}

	if objs[0].Key != "images/a.png" || objs[0].Size != 3 || objs[0].LastModified.IsZero() {
		t.Errorf("unexpected first object %+v", objs[0])
	}
}

// TestPutOpenRemove 测试上传、下载与删除，以及 not_found 映射.
func TestPutOpenRemove(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	if err := c.Put(ctx, "documents/link.txt", strings.NewReader("https://example.com"), 19, "text/plain"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	text, err := backend.FetchText(ctx, c, "documents/link.txt", 0)
	if err != nil || text != "https://example.com" {
		t.Fatalf("FetchText = %q, %v", text, err)
	}

	if err := c.Remove(ctx, "documents/link.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if _, _, err := c.Open(ctx, "documents/link.txt"); !backend.IsNotFound(err) {
		t.Fatalf("Open after remove err = %v, want not found", err)
	}
}

// TestSignedURL 测试签名 URL 补全基础地址.
func TestSignedURL(t *testing.T) {
	c := newClient(t)

	u, err := c.SignedURL(context.Background(), "videos/clip.mp4", 0)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}

	if !strings.Contains(u, "/storage/v1/object/sign/media/videos/clip.mp4?token=abc") || !strings.HasPrefix(u, "http") {
		t.Fatalf("SignedURL = %q", u)
	}
}

// TestListRetriesServerErrors 测试 5xx 会按退避重试.
func TestListRetriesServerErrors(t *testing.T) {
	c, f := newClientWith(t, &fakeStorage{objects: map[string]string{}, listFailures: 2})

	objs, err := c.List(context.Background(), "images")
	if err != nil {
		t.Fatalf("List after transient failures: %v", err)
	}

	f.mu.Lock()
	remaining := f.listFailures
	f.mu.Unlock()

	if len(objs) != 2 || remaining != 0 {
		t.Errorf("objs=%d remaining failures=%d", len(objs), remaining)
	}
}

// TestStat 测试 HEAD 读取大小，以及无正文的 400 映射为不存在.
func TestStat(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	if err := c.Put(ctx, "images/b.png", strings.NewReader("12345"), 5, "image/png"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	info, err := c.Stat(ctx, "images/b.png")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	if info.Size != 5 || info.Name != "b.png" || info.LastModified.IsZero() {
		t.Errorf("Stat = %+v", info)
	}

	if _, err := c.Stat(ctx, "images/missing.png"); !backend.IsNotFound(err) {
		t.Errorf("Stat missing err = %v, want not found", err)
	}

	if ok, err := backend.Exists(ctx, c, "images/missing.png"); ok || err != nil {
		t.Errorf("Exists missing = %v, %v", ok, err)
	}
}

// TestUnauthorized 测试 401 映射为权限错误.
func TestUnauthorized(t *testing.T) {
	srv := httptest.NewServer(&fakeStorage{objects: map[string]string{}})
	t.Cleanup(srv.Close)

	c, err := supabase.New(&configs.SupabaseConfig{URL: srv.URL, ServiceRoleKey: "wrong"})
	if err != nil {
		t.Fatalf("supabase.New: %v", err)
	}

	if _, err := c.List(context.Background(), "images"); !backend.IsPermission(err) {
		t.Errorf("List err = %v, want permission", err)
	}
}
