// Package types 定义画廊 API 与服务层共享的数据结构.
package types

// Viewer 前端查看器类型.
type Viewer string

const (
	ViewerImage  Viewer = "image"
	ViewerVideo  Viewer = "video"
	ViewerAudio  Viewer = "audio"
	ViewerPDF    Viewer = "pdf"
	ViewerOffice Viewer = "office"
	ViewerEmbed  Viewer = "embed"
	ViewerLink   Viewer = "link"
)

// ExternalSizeLabel 外链条目的大小标签.
const ExternalSizeLabel = "External"

// FileMetadata 列表中每个条目解析后的元数据.
//
// ResolvedPath 是唯一的访问地址：外链条目为外部 URL，实体文件为签名 URL 或本地静态路径.
type FileMetadata struct {
	DisplayName  string   `json:"displayName"`
	StoredName   string   `json:"storedName"`
	SizeLabel    string   `json:"sizeLabel"`
	Size         int64    `json:"size"`
	LastModified string   `json:"lastModified"`
	MtimeMs      int64    `json:"mtimeMs"`
	Description  string   `json:"description,omitempty"`
	CaptureDate  string   `json:"captureDate,omitempty"`
	Location     string   `json:"location,omitempty"`
	Category     Category `json:"category"`
	ResolvedPath string   `json:"resolvedPath"`
	ProxyPath    string   `json:"proxyPath,omitempty"`
	External     bool     `json:"external"`
	Viewer       Viewer   `json:"viewer"`
	ViewerURL    string   `json:"viewerUrl,omitempty"`
}

// Companion 伴随 JSON（<key>.json）的内容，所有字段可选.
type Companion struct {
	Description string `json:"description,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	ExternalURL string `json:"externalUrl,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// ListResponse 单个分类的列表响应.
type ListResponse struct {
	Category Category       `json:"category"`
	Query    string         `json:"query,omitempty"`
	Total    int            `json:"total"`
	Items    []FileMetadata `json:"items"`
}

// GalleryTab 画廊中的一个标签页.
type GalleryTab struct {
	Key      string         `json:"key"`
	Category Category       `json:"category"`
	Count    int            `json:"count"`
	Items    []FileMetadata `json:"items"`
}

// GalleryResponse 画廊首页响应：四个标签页及搜索词.
type GalleryResponse struct {
	Query string       `json:"query,omitempty"`
	Total int          `json:"total"`
	Tabs  []GalleryTab `json:"tabs"`
}
