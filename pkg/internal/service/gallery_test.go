package service_test

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/mediavault/pkg/cache"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/storage/kv"
	"github.com/yeisme/mediavault/pkg/internal/types"
)

// TestListAfterUpload 测试上传带描述的图片后列表结果.
func TestListAfterUpload(t *testing.T) {
	b, _ := newLocal(t)
	ctx := context.Background()
	cfg := testStorageConfig()

	fs := service.NewFileService(b, cfg)
	data := bytes.Repeat([]byte{0xff}, 2*1024*1024)

	res, err := fs.Upload(ctx, service.UploadInput{
		FileName:    "photo.jpg",
		Category:    "images",
		ContentType: "image/jpeg",
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
		Description: "sunset",
	})
	if err != nil || !res.Success {
		t.Fatalf("Upload: %+v, %v", res, err)
	}

	items, err := service.NewGalleryService(b, cfg, "").List(ctx, types.CategoryImage)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("expected 1 item (companion hidden), got %d", len(items))
	}

	it := items[0]
	if it.DisplayName != "photo.jpg" || it.StoredName != "photo.jpg" {
		t.Errorf("names = %q / %q", it.DisplayName, it.StoredName)
	}

	if it.Description != "sunset" {
		t.Errorf("description = %q", it.Description)
	}

	if it.SizeLabel != "2.00 MB" {
		t.Errorf("sizeLabel = %q", it.SizeLabel)
	}

	if it.External {
		t.Error("stored file marked external")
	}

	if it.ResolvedPath != "/uploads/images/photo.jpg" {
		t.Errorf("resolvedPath = %q", it.ResolvedPath)
	}

	if it.ProxyPath != "/api/storage?file=images%2Fphoto.jpg" {
		t.Errorf("proxyPath = %q", it.ProxyPath)
	}

	if it.Location != service.MockLocation("photo.jpg") || it.CaptureDate == "" {
		t.Errorf("mock exif missing: %q %q", it.Location, it.CaptureDate)
	}

	if it.Viewer != types.ViewerImage {
		t.Errorf("viewer = %q", it.Viewer)
	}

	if it.MtimeMs == 0 || it.LastModified == "" {
		t.Error("timestamps missing")
	}
}

// TestListLinkPlaceholder 测试 .link 占位文件解析为外链.
func TestListLinkPlaceholder(t *testing.T) {
	b, _ := newLocal(t)
	put(t, b, "videos/video.link", "external: https://youtu.be/abc123\n")

	items, err := service.NewGalleryService(b, testStorageConfig(), "").List(context.Background(), types.CategoryVideo)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("got %d items", len(items))
	}

	it := items[0]
	if it.ResolvedPath != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("resolvedPath = %q", it.ResolvedPath)
	}

	if it.SizeLabel != types.ExternalSizeLabel || !it.External {
		t.Errorf("sizeLabel = %q external=%v", it.SizeLabel, it.External)
	}

	if it.DisplayName != "video" || it.StoredName != "video.link" {
		t.Errorf("names = %q / %q", it.DisplayName, it.StoredName)
	}

	if it.ProxyPath != "" {
		t.Errorf("external entry has proxy path %q", it.ProxyPath)
	}

	if it.Viewer != types.ViewerEmbed || it.ViewerURL != "https://www.youtube.com/embed/abc123" {
		t.Errorf("viewer = %q %q", it.Viewer, it.ViewerURL)
	}
}

// TestListCompanionExternalURL 测试伴随 JSON 的 externalUrl 优先级最高.
func TestListCompanionExternalURL(t *testing.T) {
	m := newMem()
	now := time.Now()
	m.set("videos/big.mp4.link", "https://youtu.be/ignored", now)
	m.set("videos/big.mp4.link.json",
		`{"externalUrl":"https://cdn.example.com/big.mp4","displayName":"Big Movie","size":123,"description":"long"}`, now)

	items, err := service.NewGalleryService(m, testStorageConfig(), "").List(context.Background(), types.CategoryVideo)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("got %d items", len(items))
	}

	it := items[0]
	if it.ResolvedPath != "https://cdn.example.com/big.mp4" {
		t.Errorf("resolvedPath = %q", it.ResolvedPath)
	}

	if it.DisplayName != "Big Movie" || it.Description != "long" || it.Size != 123 {
		t.Errorf("companion fields not applied: %+v", it)
	}

	if it.SizeLabel != types.ExternalSizeLabel || it.Viewer != types.ViewerVideo {
		t.Errorf("sizeLabel = %q viewer = %q", it.SizeLabel, it.Viewer)
	}
}

// TestListSortAndDetect 测试排序、小文件探测与文档查看器选择.
func TestListSortAndDetect(t *testing.T) {
	m := newMem()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	m.set("documents/old.pdf", "%PDF-1.4 binary", base)
	m.set("documents/new.xlsx", "PK binary", base.Add(time.Hour))
	m.set("documents/notes.txt", "mirror: https://example.com/doc.", base.Add(30*time.Minute))
	m.set("documents/unknown.docx", "PK", time.Time{})

	gs := service.NewGalleryService(m, testStorageConfig(), "https://gallery.example.com")

	items, err := gs.List(context.Background(), types.CategoryDocument)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	order := make([]string, len(items))
	for i, it := range items {
		order[i] = it.StoredName
	}

	want := "new.xlsx,notes.txt,old.pdf,unknown.docx"
	if strings.Join(order, ",") != want {
		t.Fatalf("order = %v, want %s", order, want)
	}

	if items[3].MtimeMs != 0 {
		t.Errorf("unknown mtime = %d", items[3].MtimeMs)
	}

	notes := items[1]
	if !notes.External || notes.ResolvedPath != "https://example.com/doc" || notes.Viewer != types.ViewerLink {
		t.Errorf("small text file not promoted: %+v", notes)
	}

	pdf := items[2]
	if pdf.External || pdf.Viewer != types.ViewerPDF || pdf.ViewerURL != pdf.ResolvedPath {
		t.Errorf("pdf viewer: %+v", pdf)
	}

	xlsx := items[0]
	wantViewer := "https://docs.google.com/gview?url=" + url.QueryEscape(xlsx.ResolvedPath) + "&embedded=true"
	if xlsx.Viewer != types.ViewerOffice || xlsx.ViewerURL != wantViewer {
		t.Errorf("office viewer = %q %q", xlsx.Viewer, xlsx.ViewerURL)
	}

	for _, it := range items {
		if it.ResolvedPath == "" {
			t.Errorf("%s has no resolved path", it.StoredName)
		}

		if (it.SizeLabel == types.ExternalSizeLabel) != it.External {
			t.Errorf("%s: sizeLabel %q vs external %v", it.StoredName, it.SizeLabel, it.External)
		}
	}
}

// TestListDegradesPerEntry 测试签名失败、探测超时和损坏的伴随 JSON 只影响单个条目.
func TestListDegradesPerEntry(t *testing.T) {
	m := newMem()
	now := time.Now()
	m.set("images/slow.png", "tiny", now)
	m.set("images/broken.png", "tiny", now.Add(-time.Minute))
	m.set("images/broken.png.json", "{", now)
	m.hang["images/slow.png"] = true
	m.signErr = errSign

	start := time.Now()

	items, err := service.NewGalleryService(m, testStorageConfig(), "").List(context.Background(), types.CategoryImage)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if time.Since(start) > 5*time.Second {
		t.Fatal("probe timeout not enforced")
	}

	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}

	for _, it := range items {
		if it.External {
			t.Errorf("%s unexpectedly external", it.StoredName)
		}

		if it.ResolvedPath != service.ProxyPath("images/"+it.StoredName) {
			t.Errorf("%s resolvedPath = %q, want proxy fallback", it.StoredName, it.ResolvedPath)
		}
	}

	if items[1].Description != "" {
		t.Errorf("broken companion produced description %q", items[1].Description)
	}
}

// TestGallerySearch 测试画廊标签页与搜索.
func TestGallerySearch(t *testing.T) {
	m := newMem()
	now := time.Now()
	m.set("images/a.png", strings.Repeat("x", 8192), now)
	m.set("images/a.png.json", `{"description":"Sunset at the beach"}`, now)
	m.set("images/b.png", strings.Repeat("x", 8192), now)
	m.set("videos/sunset.mp4", strings.Repeat("x", 8192), now)
	m.set("audios/song.mp3", strings.Repeat("x", 8192), now)

	gs := service.NewGalleryService(m, testStorageConfig(), "")

	all, err := gs.Gallery(context.Background(), "")
	if err != nil {
		t.Fatalf("Gallery: %v", err)
	}

	keys := make([]string, len(all.Tabs))
	for i, tab := range all.Tabs {
		keys[i] = tab.Key
	}

	if strings.Join(keys, ",") != "photos,videos,audio,documents" {
		t.Errorf("tabs = %v", keys)
	}

	if all.Total != 4 || all.Tabs[0].Count != 2 || all.Tabs[2].Items[0].Viewer != types.ViewerAudio {
		t.Errorf("unexpected gallery: total=%d", all.Total)
	}

	found, err := gs.Gallery(context.Background(), "  SUNSET ")
	if err != nil {
		t.Fatalf("Gallery search: %v", err)
	}

	if found.Total != 2 || found.Query != "SUNSET" {
		t.Errorf("search total = %d query = %q", found.Total, found.Query)
	}

	if found.Tabs[0].Count != 1 || found.Tabs[0].Items[0].StoredName != "a.png" {
		t.Errorf("photo tab = %+v", found.Tabs[0])
	}
}

// TestListPlaceholderCache 测试探测结论按内容版本缓存，读取失败不缓存.
func TestListPlaceholderCache(t *testing.T) {
	m := newMem()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.set("videos/talk.mp4", "https://youtu.be/abc123", base)
	m.set("videos/slow.mp4", "x", base)
	m.hang["videos/slow.mp4"] = true

	store := kv.NewMemoryClient()
	gs := service.NewGalleryService(m, testStorageConfig(), "").WithPlaceholderCache(cache.NewCache(store))
	ctx := context.Background()

	for range 2 {
		items, err := gs.List(ctx, types.CategoryVideo)
		if err != nil || len(items) != 2 {
			t.Fatalf("List: %d %v", len(items), err)
		}
	}

	m.mu.Lock()
	talk, slow := m.opens["videos/talk.mp4"], m.opens["videos/slow.mp4"]
	m.mu.Unlock()

	if talk != 1 || slow != 2 {
		t.Errorf("opens talk=%d slow=%d", talk, slow)
	}

	// 覆盖后修改时间变化，旧结论不再命中
	m.set("videos/talk.mp4", "https://youtu.be/xyz789", base.Add(time.Minute))

	items, err := gs.List(ctx, types.CategoryVideo)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	for _, it := range items {
		if it.StoredName == "talk.mp4" && !strings.Contains(it.ResolvedPath, "xyz789") {
			t.Errorf("stale placeholder result: %q", it.ResolvedPath)
		}
	}

	if keys, _ := store.Keys(ctx, service.PlaceholderCachePrefix+"*"); len(keys) != 2 {
		t.Errorf("placeholder keys = %v", keys)
	}
}

// TestListSkipsSVG 测试小 SVG 不做占位探测.
func TestListSkipsSVG(t *testing.T) {
	m := newMem()
	m.set("images/icon.svg", `<svg xmlns="http://www.w3.org/2000/svg"><a href="https://example.com/x"/></svg>`, time.Now())

	items, err := service.NewGalleryService(m, testStorageConfig(), "").List(context.Background(), types.CategoryImage)
	if err != nil || len(items) != 1 {
		t.Fatalf("List: %d %v", len(items), err)
	}

	if items[0].External || strings.Contains(items[0].ResolvedPath, "w3.org") || m.opens["images/icon.svg"] != 0 {
		t.Errorf("svg item = %+v opens=%d", items[0], m.opens["images/icon.svg"])
	}
}

// TestListInvalidCategory 测试未知分类.
func TestListInvalidCategory(t *testing.T) {
	_, err := service.NewGalleryService(newMem(), nil, "").List(context.Background(), types.Category("bogus"))
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
