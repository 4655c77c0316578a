package types

import (
	"path"
	"strings"
)

// OctetStream 未知类型的默认 Content-Type.
const OctetStream = "application/octet-stream"

// mimeByExt 代理与上传共用的扩展名映射表.
var mimeByExt = map[string]string{
	"pdf":  "application/pdf",
	"txt":  "text/plain",
	"csv":  "text/csv",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"mp4":  "video/mp4",
	"mp3":  "audio/mpeg",
}

// GuessMIME 根据扩展名返回 Content-Type，未知扩展名返回 application/octet-stream.
func GuessMIME(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if ct, ok := mimeByExt[ext]; ok {
		return ct
	}

	return OctetStream
}
