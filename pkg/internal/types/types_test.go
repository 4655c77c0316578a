package types_test

import (
	"testing"

	"github.com/yeisme/mediavault/pkg/internal/types"
)

// TestParseCategory 测试分类解析的各种写法.
func TestParseCategory(t *testing.T) {
	cases := map[string]types.Category{
		"images":    types.CategoryImage,
		"Photos":    types.CategoryImage,
		"video":     types.CategoryVideo,
		"DOCUMENTS": types.CategoryDocument,
		"audio":     types.CategoryAudio,
		" audios ":  types.CategoryAudio,
	}

	for in, want := range cases {
		got, err := types.ParseCategory(in)
		if err != nil || got != want {
			t.Errorf("ParseCategory(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := types.ParseCategory("archives"); err == nil {
		t.Error("expected error for unknown category")
	}
}

// TestCategoryFolder 测试分类与目录、标签名的对应关系.
func TestCategoryFolder(t *testing.T) {
	if types.CategoryAudio.Folder() != "audios" || types.CategoryAudio.Tab() != "audio" {
		t.Errorf("audio folder/tab = %q/%q", types.CategoryAudio.Folder(), types.CategoryAudio.Tab())
	}

	if types.CategoryImage.Tab() != "photos" {
		t.Errorf("image tab = %q", types.CategoryImage.Tab())
	}

	if types.Category("misc").Valid() {
		t.Error("unknown category should be invalid")
	}
}

// TestDetectCategory 测试上传时的分类推断.
func TestDetectCategory(t *testing.T) {
	cases := []struct {
		contentType, name string
		want              types.Category
		ok                bool
	}{
		{"image/png", "a.png", types.CategoryImage, true},
		{"video/mp4", "clip.mp4", types.CategoryVideo, true},
		{"audio/mpeg", "song.mp3", types.CategoryAudio, true},
		{"application/pdf", "doc.pdf", types.CategoryDocument, true},
		{"", "report.docx", types.CategoryDocument, true},
		{"application/octet-stream", "movie.mp4", types.CategoryVideo, true},
		{"text/plain; charset=utf-8", "notes.txt", types.CategoryDocument, true},
		{"application/zip", "bundle.zip", "", false},
	}

	for _, tc := range cases {
		got, ok := types.DetectCategory(tc.contentType, tc.name)
		if got != tc.want || ok != tc.ok {
			t.Errorf("DetectCategory(%q, %q) = %q, %v; want %q, %v", tc.contentType, tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

// TestGuessMIME 测试扩展名映射表.
func TestGuessMIME(t *testing.T) {
	cases := map[string]string{
		"a.PDF":      "application/pdf",
		"b.jpeg":     "image/jpeg",
		"c.mp3":      "audio/mpeg",
		"d.pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"e.link":     types.OctetStream,
		"no-ext":     types.OctetStream,
		"clip.webm":  types.OctetStream,
		"sheet.xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}

	for name, want := range cases {
		if got := types.GuessMIME(name); got != want {
			t.Errorf("GuessMIME(%q) = %q, want %q", name, got, want)
		}
	}
}
