package types

import (
	"fmt"
	"mime"
	"regexp"
	"strings"
)

// Category 媒体分类.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryDocument Category = "document"
	CategoryAudio    Category = "audio"
)

// Categories 画廊标签页顺序.
var Categories = []Category{CategoryImage, CategoryVideo, CategoryAudio, CategoryDocument}

// Folder 分类在存储中的目录（前缀）名.
func (c Category) Folder() string {
	switch c {
	case CategoryImage:
		return "images"
	case CategoryVideo:
		return "videos"
	case CategoryDocument:
		return "documents"
	case CategoryAudio:
		return "audios"
	default:
		return ""
	}
}

// Tab 分类对应的画廊标签名.
func (c Category) Tab() string {
	switch c {
	case CategoryImage:
		return "photos"
	case CategoryVideo:
		return "videos"
	case CategoryDocument:
		return "documents"
	case CategoryAudio:
		return "audio"
	default:
		return ""
	}
}

// Valid 是否为已知分类.
func (c Category) Valid() bool {
	return c.Folder() != ""
}

// ParseCategory 解析分类，接受目录名、单数形式与标签名（不区分大小写）.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "images", "image", "photos", "photo":
		return CategoryImage, nil
	case "videos", "video":
		return CategoryVideo, nil
	case "documents", "document", "docs":
		return CategoryDocument, nil
	case "audios", "audio":
		return CategoryAudio, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// documentMIMEs 上传时识别为文档的 MIME 类型.
var documentMIMEs = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.ms-excel":                                                  {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.ms-powerpoint":                                             {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"text/plain": {},
	"text/csv":   {},
}

var documentExt = regexp.MustCompile(`(?i)\.(pdf|doc|docx|xls|xlsx|ppt|pptx|txt|csv)$`)

// DetectCategory 根据 MIME 类型和文件名推断分类；无法识别时返回 false.
func DetectCategory(contentType, fileName string) (Category, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" || ct == "application/octet-stream" {
		ct = GuessMIME(fileName)
	}

	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}

	switch {
	case strings.HasPrefix(ct, "image/"):
		return CategoryImage, true
	case strings.HasPrefix(ct, "video/"):
		return CategoryVideo, true
	case strings.HasPrefix(ct, "audio/"):
		return CategoryAudio, true
	}

	if _, ok := documentMIMEs[ct]; ok || documentExt.MatchString(fileName) {
		return CategoryDocument, true
	}

	return "", false
}
