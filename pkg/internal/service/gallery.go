package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/mediavault/pkg/cache"
	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	"github.com/yeisme/mediavault/pkg/internal/types"
	nlog "github.com/yeisme/mediavault/pkg/log"
	"github.com/yeisme/mediavault/pkg/metrics"
	"github.com/yeisme/mediavault/pkg/tracing"
)

const (
	// maxProbeBytes 单次探测最多读取的字节数.
	maxProbeBytes = 64 * 1024
	// ProxyEndpoint 同源代理地址.
	ProxyEndpoint = "/api/storage"
	// googleViewer 非 PDF 文档的在线预览地址.
	googleViewer = "https://docs.google.com/gview?url=%s&embedded=true"
	// PlaceholderCachePrefix 占位解析结果缓存键前缀，键中包含大小与修改时间，内容变化即换键.
	PlaceholderCachePrefix = "placeholder:"
	placeholderCacheTTL    = 6 * time.Hour
)

// placeholderResult 一次成功读取的占位解析结论，读取失败不缓存.
type placeholderResult struct {
	URL      string `json:"url,omitempty"`
	External bool   `json:"external"`
}

// GalleryService 列表解析：把后端条目转换为 FileMetadata.
type GalleryService struct {
	backend      backend.Backend
	cfg          *configs.StorageConfig
	baseURL      string
	placeholders *cache.Cache
}

// NewGalleryService 创建 GalleryService，publicBaseURL 用于拼接文档预览所需的绝对地址，可为空.
func NewGalleryService(b backend.Backend, cfg *configs.StorageConfig, publicBaseURL string) *GalleryService {
	if cfg == nil {
		cfg = &configs.StorageConfig{}
	}

	return &GalleryService{
		backend: b,
		cfg:     cfg,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// WithPlaceholderCache 缓存占位解析结论，远程后端上列表缓存失效后不必重新下载每个小文件.
func (s *GalleryService) WithPlaceholderCache(c *cache.Cache) *GalleryService {
	s.placeholders = c

	return s
}

// List 解析一个分类下的全部条目，按 mtimeMs 倒序返回.
//
// 每个条目独立解析，单个条目失败只会降级该条目的元数据，不影响整个列表.
// 解析并发受 probe_concurrency 限制，每次探测受 probe_timeout 限制.
func (s *GalleryService) List(ctx context.Context, cat types.Category) ([]types.FileMetadata, error) {
	if !cat.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, cat)
	}

	ctx, span := tracing.StartSpan(ctx, "gallery.list",
		trace.WithAttributes(attribute.String("category", string(cat))))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ListingDuration.WithLabelValues(string(cat)).Observe(time.Since(start).Seconds())
	}()

	objs, err := backend.ListEntries(ctx, s.backend, cat.Folder())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")

		return nil, fmt.Errorf("list %s: %w", cat.Folder(), err)
	}

	items := make([]types.FileMetadata, len(objs))

	var g errgroup.Group
	g.SetLimit(s.cfg.GetProbeConcurrency())

	for i, obj := range objs {
		g.Go(func() error {
			items[i] = s.resolve(ctx, cat, obj)

			return nil
		})
	}

	_ = g.Wait()

	SortByMtime(items)
	span.SetAttributes(attribute.Int("items", len(items)))

	return items, nil
}

// ListCategory 单个分类的列表响应，q 为搜索词.
func (s *GalleryService) ListCategory(ctx context.Context, cat types.Category, q string) (*types.ListResponse, error) {
	items, err := s.List(ctx, cat)
	if err != nil {
		return nil, err
	}

	items = Filter(items, q)

	return &types.ListResponse{
		Category: cat,
		Query:    strings.TrimSpace(q),
		Total:    len(items),
		Items:    items,
	}, nil
}

// Gallery 画廊首页：四个标签页并发解析，搜索词作用于每个标签页.
func (s *GalleryService) Gallery(ctx context.Context, q string) (*types.GalleryResponse, error) {
	tabs := make([]types.GalleryTab, len(types.Categories))

	g, gctx := errgroup.WithContext(ctx)

	for i, cat := range types.Categories {
		g.Go(func() error {
			items, err := s.List(gctx, cat)
			if err != nil {
				return err
			}

			items = Filter(items, q)
			tabs[i] = types.GalleryTab{Key: cat.Tab(), Category: cat, Count: len(items), Items: items}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &types.GalleryResponse{Query: strings.TrimSpace(q), Tabs: tabs}
	for _, t := range tabs {
		resp.Total += t.Count
	}

	return resp, nil
}

// resolve 解析单个条目，保证 ResolvedPath 非空.
func (s *GalleryService) resolve(ctx context.Context, cat types.Category, obj backend.ObjectInfo) types.FileMetadata {
	meta := types.FileMetadata{
		DisplayName:  obj.Name,
		StoredName:   obj.Name,
		Size:         obj.Size,
		Category:     cat,
		LastModified: FormatDate(obj.LastModified),
	}

	if !obj.LastModified.IsZero() {
		meta.MtimeMs = obj.LastModified.UnixMilli()
	}

	comp := s.companion(ctx, obj.Key)
	if comp != nil {
		meta.Description = comp.Description
	}

	if ext, ok := s.detectExternal(ctx, obj, comp); ok {
		meta.External = true
		meta.ResolvedPath = NormalizeVideoURL(ext)
		meta.SizeLabel = types.ExternalSizeLabel
		meta.Size = 0
		meta.DisplayName = TrimLinkSuffix(obj.Name)

		if comp != nil {
			meta.Size = comp.Size
		}
	} else {
		meta.SizeLabel = SizeLabel(obj.Size)
		meta.ResolvedPath = s.storedURL(ctx, obj.Key)

		if Proxiable(obj.Key) {
			meta.ProxyPath = ProxyPath(obj.Key)
		}
	}

	// 伴随 JSON 的显示名优先于文件名推导的结果
	if comp != nil && strings.TrimSpace(comp.DisplayName) != "" {
		meta.DisplayName = strings.TrimSpace(comp.DisplayName)
	}

	if cat == types.CategoryImage {
		meta.CaptureDate = CaptureDate(obj.LastModified)
		meta.Location = MockLocation(obj.Name)
	}

	meta.Viewer, meta.ViewerURL = s.viewer(&meta)

	return meta
}

// companion 读取伴随 JSON，失败时返回 nil.
func (s *GalleryService) companion(ctx context.Context, key string) *types.Companion {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.GetProbeTimeout())
	defer cancel()

	c, err := backend.ReadCompanion(pctx, s.backend, key)
	if err != nil {
		if !backend.IsNotFound(err) {
			nlog.Logger().Debug().Err(err).Str("key", key).Msg("companion read failed")
		}

		return nil
	}

	return c
}

// detectExternal 按优先级判断条目是否为外链：伴随 JSON externalUrl、.link 文件、小文件或文本探测.
func (s *GalleryService) detectExternal(ctx context.Context, obj backend.ObjectInfo, comp *types.Companion) (string, bool) {
	if comp != nil {
		if u := strings.TrimSpace(comp.ExternalURL); u != "" {
			return u, true
		}
	}

	// .link 文件探测失败后按普通文件处理，不再重复探测
	if IsLinkName(obj.Name) {
		return s.probe(ctx, obj)
	}

	// SVG 是 XML 文本，其中的命名空间和 href 不是占位外链
	if isSVG(obj) {
		return "", false
	}

	if obj.Size < s.cfg.GetProbeThreshold() || isTextType(obj.ContentType) {
		return s.probe(ctx, obj)
	}

	return "", false
}

// probe 读取对象开头部分并尝试提取 URL，任何错误都视为非外链.
func (s *GalleryService) probe(ctx context.Context, obj backend.ObjectInfo) (string, bool) {
	fetch := func() (placeholderResult, error) { return s.fetchPlaceholder(ctx, obj.Key) }

	var (
		res placeholderResult
		err error
	)

	if s.placeholders != nil {
		res, err = cache.GetOrSet(ctx, s.placeholders, placeholderCacheKey(obj), fetch, placeholderCacheTTL)
	} else {
		res, err = fetch()
	}

	if err != nil {
		return "", false
	}

	return res.URL, res.External
}

func (s *GalleryService) fetchPlaceholder(ctx context.Context, key string) (placeholderResult, error) {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.GetProbeTimeout())
	defer cancel()

	text, err := backend.FetchText(pctx, s.backend, key, maxProbeBytes)
	if err != nil {
		result := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(pctx.Err(), context.DeadlineExceeded) {
			result = "timeout"
		}

		metrics.ObserveProbe(result)
		nlog.Logger().Debug().Err(err).Str("key", key).Str("result", result).Msg("placeholder probe failed")

		return placeholderResult{}, err
	}

	u, ok := ExtractURL(text)
	if ok {
		metrics.ObserveProbe("external")
	} else {
		metrics.ObserveProbe("stored")
	}

	return placeholderResult{URL: u, External: ok}, nil
}

func placeholderCacheKey(obj backend.ObjectInfo) string {
	return PlaceholderCachePrefix + obj.Key + ":" + strconv.FormatInt(obj.Size, 10) + ":" +
		strconv.FormatInt(obj.LastModified.UnixNano(), 10)
}

// storedURL 返回实体文件的访问地址；签名失败时退回同源代理地址.
func (s *GalleryService) storedURL(ctx context.Context, key string) string {
	u, err := s.backend.SignedURL(ctx, key, s.cfg.GetSignedURLExpiry())
	if err == nil && u != "" {
		return u
	}

	nlog.Logger().Warn().Err(err).Str("key", key).Msg("signed url failed, falling back to proxy")

	return ProxyPath(key)
}

// viewer 选择前端查看器.
func (s *GalleryService) viewer(meta *types.FileMetadata) (types.Viewer, string) {
	if meta.External {
		if embed, ok := EmbedURL(meta.ResolvedPath); ok {
			return types.ViewerEmbed, embed
		}
	}

	switch meta.Category {
	case types.CategoryImage:
		return types.ViewerImage, ""
	case types.CategoryVideo:
		if meta.External && !directMediaPattern.MatchString(meta.ResolvedPath) {
			return types.ViewerLink, meta.ResolvedPath
		}

		return types.ViewerVideo, ""
	case types.CategoryAudio:
		if meta.External && !directMediaPattern.MatchString(meta.ResolvedPath) {
			return types.ViewerLink, meta.ResolvedPath
		}

		return types.ViewerAudio, ""
	case types.CategoryDocument:
		if strings.EqualFold(path.Ext(TrimLinkSuffix(meta.StoredName)), ".pdf") {
			return types.ViewerPDF, meta.ResolvedPath
		}

		if meta.External {
			return types.ViewerLink, meta.ResolvedPath
		}

		return types.ViewerOffice, fmt.Sprintf(googleViewer, url.QueryEscape(s.absolute(meta.ResolvedPath)))
	default:
		return types.ViewerLink, meta.ResolvedPath
	}
}

// absolute 把同源相对路径补全为外部可访问的地址.
func (s *GalleryService) absolute(p string) string {
	if s.baseURL == "" || !strings.HasPrefix(p, "/") {
		return p
	}

	return s.baseURL + p
}

func isSVG(obj backend.ObjectInfo) bool {
	if strings.EqualFold(path.Ext(obj.Name), ".svg") {
		return true
	}

	mt, _, _ := mime.ParseMediaType(obj.ContentType)

	return strings.EqualFold(mt, "image/svg+xml")
}

func isTextType(contentType string) bool {
	if contentType == "" {
		return false
	}

	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = contentType
	}

	return strings.HasPrefix(strings.ToLower(mt), "text/")
}

// SortByMtime 按 mtimeMs 倒序稳定排序，时间未知（0）的条目排在最后.
func SortByMtime(items []types.FileMetadata) {
	slices.SortStableFunc(items, func(a, b types.FileMetadata) int {
		return cmp.Compare(b.MtimeMs, a.MtimeMs)
	})
}

// Filter 按搜索词过滤，大小写不敏感地匹配显示名和描述.
func Filter(items []types.FileMetadata, q string) []types.FileMetadata {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return items
	}

	out := make([]types.FileMetadata, 0, len(items))

	for _, it := range items {
		if strings.Contains(strings.ToLower(it.DisplayName), q) ||
			strings.Contains(strings.ToLower(it.Description), q) {
			out = append(out, it)
		}
	}

	return out
}

// ProxyPath 返回对象的同源代理地址.
func ProxyPath(key string) string {
	return ProxyEndpoint + "?file=" + url.QueryEscape(key)
}
