package service_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/mediavault/pkg/cache"
	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/model"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	"github.com/yeisme/mediavault/pkg/internal/storage/db"
	"github.com/yeisme/mediavault/pkg/internal/storage/kv"
	"github.com/yeisme/mediavault/pkg/internal/types"
	"github.com/yeisme/mediavault/pkg/queue"
)

// recordingPublisher 记录发布的主题与生产者.
type recordingPublisher struct {
	mu        sync.Mutex
	topics    []string
	producers []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.topics = append(p.topics, topic)

	for _, msg := range msgs {
		if ev, err := queue.ParseWatermillMessage[map[string]any](msg); err == nil {
			p.producers = append(p.producers, ev.Header.Producer)
		}
	}

	return nil
}

// failingReader 被读取即失败，用于确认超限上传不会写入.
type failingReader struct{ t *testing.T }

func (r failingReader) Read([]byte) (int, error) {
	r.t.Error("oversized upload body was read")

	return 0, errors.New("unexpected read")
}

func newActivity(t *testing.T) *service.ActivityService {
	t.Helper()

	client, err := db.New(context.Background(), &configs.DBConfig{
		Type:     configs.SQLite,
		Database: filepath.Join(t.TempDir(), "activity"),
	})
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })

	return service.NewActivityService(client.DB)
}

// TestSanitizeFileName 测试文件名清洗.
func TestSanitizeFileName(t *testing.T) {
	allowed := regexp.MustCompile(`^[a-zA-Z0-9.\-_]+$`)

	got := service.SanitizeFileName("a b/../c.png")
	if got != "a_b_.._c.png" || !allowed.MatchString(got) {
		t.Errorf("SanitizeFileName = %q", got)
	}

	if got := service.SanitizeFileName("résumé (1).pdf"); !allowed.MatchString(got) {
		t.Errorf("unsafe characters kept: %q", got)
	}

	for _, in := range []string{"", ".", ".."} {
		if got := service.SanitizeFileName(in); !strings.HasPrefix(got, "file_") {
			t.Errorf("SanitizeFileName(%q) = %q", in, got)
		}
	}
}

// TestUploadValidation 测试上传参数校验，失败时不写入.
func TestUploadValidation(t *testing.T) {
	m := newMem()
	fs := service.NewFileService(m, &configs.StorageConfig{})
	ctx := context.Background()

	res, err := fs.Upload(ctx, service.UploadInput{FileName: "a.png", Category: "images", Size: 0, Body: strings.NewReader("")})
	if !errors.Is(err, service.ErrValidation) || res.Message != service.MsgSelectFile {
		t.Errorf("empty upload: %+v %v", res, err)
	}

	res, err = fs.Upload(ctx, service.UploadInput{
		FileName: "big.mp4",
		Category: "videos",
		Size:     60 * 1024 * 1024,
		Body:     failingReader{t},
	})
	if !errors.Is(err, service.ErrValidation) || res.Success {
		t.Fatalf("oversized upload: %+v %v", res, err)
	}

	if res.Message != "File is too large. Maximum size is 50 MB." {
		t.Errorf("message = %q", res.Message)
	}

	res, err = fs.Upload(ctx, service.UploadInput{FileName: "meta.json", Category: "documents", Size: 2, Body: strings.NewReader("{}")})
	if !errors.Is(err, service.ErrValidation) || res.Success {
		t.Errorf("json upload accepted: %+v", res)
	}

	res, err = fs.Upload(ctx, service.UploadInput{FileName: "a.xyz", Size: 3, Body: strings.NewReader("abc")})
	if !errors.Is(err, service.ErrValidation) || res.Message != service.MsgUnsupportedType {
		t.Errorf("unknown type: %+v %v", res, err)
	}

	if len(m.objects) != 0 {
		t.Errorf("validation failures wrote %d objects", len(m.objects))
	}
}

// TestUploadUnknownSizeLimit 测试大小未知时读取过程中执行上限.
func TestUploadUnknownSizeLimit(t *testing.T) {
	m := newMem()
	fs := service.NewFileService(m, &configs.StorageConfig{MaxUploadMB: 1})

	res, err := fs.Upload(context.Background(), service.UploadInput{
		FileName: "a.png",
		Category: "images",
		Size:     -1,
		Body:     bytes.NewReader(make([]byte, 2*1024*1024)),
	})
	if !errors.Is(err, service.ErrValidation) || res.Message != "File is too large. Maximum size is 1 MB." {
		t.Fatalf("unknown size over limit: %+v %v", res, err)
	}
}

// TestUploadSanitizedName 测试文件名被清洗时伴随 JSON 保留原始显示名.
func TestUploadSanitizedName(t *testing.T) {
	b, _ := newLocal(t)
	ctx := context.Background()
	cfg := testStorageConfig()

	res, err := service.NewFileService(b, cfg).Upload(ctx, service.UploadInput{
		FileName:    "my photo.png",
		Size:        5,
		ContentType: "image/png",
		Body:        strings.NewReader("12345"),
		Description: "beach",
	})
	if err != nil || !res.Success {
		t.Fatalf("Upload: %+v %v", res, err)
	}

	if res.Path != "/uploads/images/my_photo.png" {
		t.Errorf("path = %q", res.Path)
	}

	comp, err := backend.ReadCompanion(ctx, b, "images/my_photo.png")
	if err != nil {
		t.Fatalf("ReadCompanion: %v", err)
	}

	if comp.DisplayName != "my photo.png" || comp.Description != "beach" {
		t.Errorf("companion = %+v", comp)
	}

	items, err := service.NewGalleryService(b, cfg, "").List(ctx, types.CategoryImage)
	if err != nil || len(items) != 1 {
		t.Fatalf("List: %d %v", len(items), err)
	}

	if items[0].DisplayName != "my photo.png" || items[0].StoredName != "my_photo.png" {
		t.Errorf("names = %q / %q", items[0].DisplayName, items[0].StoredName)
	}
}

// TestUploadReplacesStaleCompanion 测试无描述覆盖上传会清除旧的外链与描述.
func TestUploadReplacesStaleCompanion(t *testing.T) {
	b, _ := newLocal(t)
	ctx := context.Background()
	cfg := testStorageConfig()

	put(t, b, "videos/clip.mp4", "https://youtu.be/old123")
	put(t, b, "videos/clip.mp4.json", `{"externalUrl":"https://youtu.be/old123","description":"old"}`)

	clip := bytes.Repeat([]byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'}, 1024)

	res, err := service.NewFileService(b, cfg).Upload(ctx, service.UploadInput{
		FileName:    "clip.mp4",
		Category:    "videos",
		ContentType: "video/mp4",
		Size:        int64(len(clip)),
		Body:        bytes.NewReader(clip),
	})
	if err != nil || !res.Success {
		t.Fatalf("Upload: %+v %v", res, err)
	}

	if ok, _ := backend.Exists(ctx, b, "videos/clip.mp4.json"); ok {
		t.Error("stale companion kept")
	}

	items, err := service.NewGalleryService(b, cfg, "").List(ctx, types.CategoryVideo)
	if err != nil || len(items) != 1 {
		t.Fatalf("List: %d %v", len(items), err)
	}

	if items[0].External || items[0].Description == "old" || items[0].Size != int64(len(clip)) {
		t.Errorf("item = %+v", items[0])
	}

	// 清洗过的文件名即使没有描述也要记录显示名
	res, err = service.NewFileService(b, cfg).Upload(ctx, service.UploadInput{
		FileName:    "my clip.mp4",
		Category:    "videos",
		ContentType: "video/mp4",
		Size:        int64(len(clip)),
		Body:        bytes.NewReader(clip),
	})
	if err != nil || !res.Success {
		t.Fatalf("Upload sanitized: %+v %v", res, err)
	}

	comp, err := backend.ReadCompanion(ctx, b, "videos/my_clip.mp4")
	if err != nil || comp.DisplayName != "my clip.mp4" || comp.Description != "" {
		t.Errorf("companion = %+v, %v", comp, err)
	}
}

// TestTruncate 测试截断不会切开多字节字符.
func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"aé", 2, "a"},
		{"照片", 4, "照"},
		{"照片", 6, "照片"},
		{"照", 1, ""},
	}

	for _, tc := range cases {
		got := service.Truncate(tc.in, tc.n)
		if got != tc.want || !utf8.ValidString(got) {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

// TestUploadDetectsCategory 测试未指定分类时自动识别.
func TestUploadDetectsCategory(t *testing.T) {
	m := newMem()

	res, err := service.NewFileService(m, nil).Upload(context.Background(), service.UploadInput{
		FileName:    "song.mp3",
		ContentType: "audio/mpeg",
		Size:        4,
		Body:        strings.NewReader("ID3x"),
	})
	if err != nil || !res.Success {
		t.Fatalf("Upload: %+v %v", res, err)
	}

	if _, ok := m.objects["audios/song.mp3"]; !ok {
		t.Errorf("stored keys = %v", m.objects)
	}
}

// TestDeleteTwice 测试删除及重复删除.
func TestDeleteTwice(t *testing.T) {
	b, _ := newLocal(t)
	ctx := context.Background()
	fs := service.NewFileService(b, nil)

	put(t, b, "documents/report.pdf", "%PDF")
	put(t, b, "documents/report.pdf.json", `{"description":"q1"}`)

	res, err := fs.Delete(ctx, "report.pdf", "documents", "admin", "127.0.0.1")
	if err != nil || !res.Success || res.Message != service.MsgDeleted {
		t.Fatalf("first delete: %+v %v", res, err)
	}

	if ok, _ := backend.Exists(ctx, b, "documents/report.pdf.json"); ok {
		t.Error("companion not removed")
	}

	res, err = fs.Delete(ctx, "report.pdf", "documents", "admin", "127.0.0.1")
	if !backend.IsNotFound(err) || res.Success || res.Message != service.MsgNotFound {
		t.Fatalf("second delete: %+v %v", res, err)
	}

	res, err = fs.Delete(ctx, "", "documents", "", "")
	if !errors.Is(err, service.ErrValidation) || res.Message != service.MsgInvalidFileInfo {
		t.Errorf("empty name: %+v %v", res, err)
	}

	res, err = fs.Delete(ctx, "a.png", "trash", "", "")
	if !errors.Is(err, service.ErrValidation) || res.Message != service.MsgInvalidFileInfo {
		t.Errorf("bad type: %+v %v", res, err)
	}
}

// TestSideEffects 测试上传与删除后的缓存失效、事件发布和操作日志.
func TestSideEffects(t *testing.T) {
	m := newMem()
	ctx := context.Background()
	c := cache.NewCache(kv.NewMemoryClient())
	pub := &recordingPublisher{}
	activity := newActivity(t)

	events := configs.EventsConfig{Enabled: true, Object: configs.ObjectEventsConfig{Stored: true, Deleted: true}}
	fs := service.NewFileService(m, nil,
		service.WithCache(c), service.WithEvents(pub, events), service.WithActivity(activity))

	if err := cache.Set(ctx, c, "gallery:all", "cached", time.Minute); err != nil {
		t.Fatalf("cache.Set: %v", err)
	}

	if _, err := fs.Upload(ctx, service.UploadInput{
		FileName: "a.png", Category: "images", Size: 3, Body: strings.NewReader("abc"), Actor: "admin",
	}); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if ok, _ := c.Exists(ctx, "gallery:all"); ok {
		t.Error("listing cache not invalidated after upload")
	}

	if _, err := fs.Delete(ctx, "a.png", "images", "admin", "10.0.0.1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if strings.Join(pub.topics, ",") != queue.TopicObjectStored+","+queue.TopicObjectDeleted {
		t.Errorf("topics = %v", pub.topics)
	}

	if len(pub.producers) != 2 || pub.producers[0] != service.EventProducer || pub.producers[1] != service.EventProducer {
		t.Errorf("producers = %v", pub.producers)
	}

	recent, err := activity.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}

	if len(recent) != 2 || recent[0].Action != model.ActionDelete || recent[1].Action != model.ActionUpload {
		t.Fatalf("recent = %+v", recent)
	}

	if recent[1].Size != 3 || recent[1].Key != "images/a.png" {
		t.Errorf("upload activity = %+v", recent[1])
	}

	n, err := activity.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 2 {
		t.Errorf("Prune = %d, %v", n, err)
	}
}
