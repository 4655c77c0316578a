package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yeisme/mediavault/pkg/cache"
	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/model"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	"github.com/yeisme/mediavault/pkg/internal/types"
	nlog "github.com/yeisme/mediavault/pkg/log"
	"github.com/yeisme/mediavault/pkg/metrics"
	"github.com/yeisme/mediavault/pkg/queue"
	"github.com/yeisme/mediavault/pkg/tracing"
)

// 面向用户的提示信息.
const (
	MsgSelectFile       = "Please select a file to upload."
	MsgTooLargeFmt      = "File is too large. Maximum size is %d MB."
	MsgUploaded         = "File uploaded successfully!"
	MsgUploadFailed     = "Failed to upload file."
	MsgUploadPermission = "Permission denied while saving file."
	MsgUnsupportedType  = "Unsupported file type."
	MsgReservedName     = "File names ending in .json are reserved."
	MsgDeleted          = "File deleted successfully."
	MsgNotFound         = "File not found."
	MsgPermission       = "Permission denied."
	MsgDeleteFailed     = "Failed to delete file."
	MsgInvalidFileInfo  = "Invalid file information."
)

// GalleryCachePrefix 列表响应缓存键前缀，文件变更后整体失效.
const GalleryCachePrefix = "gallery:"

// EventProducer 对象事件头中的生产者标识.
const EventProducer = configs.AppName + "/files"

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// SanitizeFileName 只保留字母、数字、点、横线和下划线，其余字符替换为下划线.
// 结果为空、"." 或 ".." 时生成 file_<毫秒时间戳>.
func SanitizeFileName(name string) string {
	return sanitizeAt(name, time.Now())
}

func sanitizeAt(name string, now time.Time) string {
	s := unsafeNameChars.ReplaceAllString(name, "_")
	if s == "" || s == "." || s == ".." {
		return "file_" + strconv.FormatInt(now.UnixMilli(), 10)
	}

	return s
}

// UploadInput 一次上传的参数.
type UploadInput struct {
	FileName    string
	Category    string // 为空时按类型与扩展名自动识别
	ContentType string
	Size        int64 // -1 表示未知
	Body        io.Reader
	Description string
	Actor       string
	ClientIP    string
}

// FileService 上传与删除.
type FileService struct {
	backend  backend.Backend
	cfg      *configs.StorageConfig
	cache    *cache.Cache
	events   queue.Publisher
	eventCfg configs.EventsConfig
	activity *ActivityService
	now      func() time.Time
}

// FileOption 配置 FileService.
type FileOption func(*FileService)

// WithCache 变更后失效列表缓存.
func WithCache(c *cache.Cache) FileOption {
	return func(fs *FileService) { fs.cache = c }
}

// WithEvents 变更后发布对象事件.
func WithEvents(pub queue.Publisher, cfg configs.EventsConfig) FileOption {
	return func(fs *FileService) {
		fs.events = pub
		fs.eventCfg = cfg
	}
}

// WithActivity 记录操作日志.
func WithActivity(a *ActivityService) FileOption {
	return func(fs *FileService) { fs.activity = a }
}

// NewFileService 创建 FileService.
func NewFileService(b backend.Backend, cfg *configs.StorageConfig, opts ...FileOption) *FileService {
	if cfg == nil {
		cfg = &configs.StorageConfig{}
	}

	fs := &FileService{backend: b, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(fs)
	}

	return fs
}

func failure(msg string, err error) (types.ActionResult, error) {
	return types.ActionResult{Success: false, Message: msg}, err
}

// Upload 上传单个文件.
//
// 超出大小限制时在写入前拒绝. 描述非空或文件名被清洗时重写伴随 JSON，否则删除旧的伴随 JSON.
// 返回的 error 用于区分失败类型（ErrValidation、backend.ErrPermission 等），结果中的 Message 可直接展示.
func (fs *FileService) Upload(ctx context.Context, in UploadInput) (types.ActionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "files.upload")
	defer span.End()

	if in.Body == nil || in.Size == 0 || strings.TrimSpace(in.FileName) == "" {
		return failure(MsgSelectFile, ErrValidation)
	}

	maxBytes := fs.cfg.GetMaxUploadBytes()
	tooLarge := fmt.Sprintf(MsgTooLargeFmt, fs.cfg.GetMaxUploadMB())

	if in.Size > maxBytes {
		return failure(tooLarge, ErrValidation)
	}

	cat, ok := fs.category(in)
	if !ok {
		return failure(MsgUnsupportedType, ErrValidation)
	}

	name := SanitizeFileName(in.FileName)
	if backend.IsCompanion(name) {
		return failure(MsgReservedName, ErrValidation)
	}

	key := backend.JoinKey(cat.Folder(), name)

	contentType := in.ContentType
	if contentType == "" || contentType == types.OctetStream {
		contentType = types.GuessMIME(name)
	}

	body := in.Body
	if in.Size < 0 {
		body = &limitedReader{r: in.Body, remaining: maxBytes}
	}

	log := nlog.Logger().With().Str("key", key).Logger()

	if err := fs.backend.Put(ctx, key, body, in.Size, contentType); err != nil {
		metrics.ObserveFileOp("upload", string(cat), false)
		fs.record(ctx, model.ActionUpload, cat, key, in.Size, in.Actor, in.ClientIP, false, err.Error())
		log.Error().Err(err).Msg("upload failed")

		switch {
		case errors.Is(err, errTooLarge):
			return failure(tooLarge, ErrValidation)
		case backend.IsPermission(err):
			return failure(MsgUploadPermission, err)
		default:
			return failure(MsgUploadFailed, err)
		}
	}

	// 覆盖上传时旧伴随文件里的 externalUrl 和描述不能继续生效
	desc := strings.TrimSpace(in.Description)
	comp := &types.Companion{Description: desc}

	if name != in.FileName {
		comp.DisplayName = in.FileName
	}

	if comp.Description != "" || comp.DisplayName != "" {
		if err := backend.WriteCompanion(ctx, fs.backend, key, comp); err != nil {
			log.Warn().Err(err).Msg("write companion failed")
		}
	} else if err := fs.backend.Remove(ctx, backend.CompanionKey(key)); err != nil && !backend.IsNotFound(err) {
		log.Warn().Err(err).Msg("remove stale companion failed")
	}

	size := in.Size
	if size < 0 {
		if info, err := fs.backend.Stat(ctx, key); err == nil {
			size = info.Size
		}
	}

	metrics.ObserveFileOp("upload", string(cat), true)
	metrics.UploadBytes.WithLabelValues(string(cat)).Add(float64(max(size, 0)))

	fs.invalidate(ctx)
	fs.record(ctx, model.ActionUpload, cat, key, size, in.Actor, in.ClientIP, true, MsgUploaded)

	if fs.events != nil && fs.eventCfg.Enabled && fs.eventCfg.Object.Stored {
		err := queue.PublishObjectStored(ctx, fs.events, queue.ObjectStoredPayload{
			Object:      fs.ref(cat, key, size, contentType),
			FileName:    in.FileName,
			Description: desc,
			Actor:       in.Actor,
		}, eventOpts(ctx)...)
		if err != nil {
			log.Warn().Err(err).Msg("publish object stored failed")
		}
	}

	log.Info().Int64("size", size).Str("category", string(cat)).Msg("file uploaded")

	res := types.ActionResult{Success: true, Message: MsgUploaded}
	if u, err := fs.backend.SignedURL(ctx, key, fs.cfg.GetSignedURLExpiry()); err == nil {
		res.Path = u
	}

	return res, nil
}

func (fs *FileService) category(in UploadInput) (types.Category, bool) {
	if strings.TrimSpace(in.Category) != "" {
		cat, err := types.ParseCategory(in.Category)

		return cat, err == nil
	}

	return types.DetectCategory(in.ContentType, in.FileName)
}

// Delete 删除文件及其伴随 JSON（尽力而为）.
func (fs *FileService) Delete(ctx context.Context, fileName, category, actor, clientIP string) (types.ActionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "files.delete")
	defer span.End()

	if strings.TrimSpace(fileName) == "" {
		return failure(MsgInvalidFileInfo, ErrValidation)
	}

	cat, err := types.ParseCategory(category)
	if err != nil {
		return failure(MsgInvalidFileInfo, ErrValidation)
	}

	key := backend.JoinKey(cat.Folder(), SanitizeFileName(fileName))
	log := nlog.Logger().With().Str("key", key).Logger()

	if err := fs.backend.Remove(ctx, key); err != nil {
		metrics.ObserveFileOp("delete", string(cat), false)

		var msg string

		switch {
		case backend.IsNotFound(err):
			msg = MsgNotFound
		case backend.IsPermission(err):
			msg = MsgPermission
		default:
			msg = MsgDeleteFailed

			log.Error().Err(err).Msg("delete failed")
		}

		fs.record(ctx, model.ActionDelete, cat, key, 0, actor, clientIP, false, msg)

		return failure(msg, err)
	}

	if err := fs.backend.Remove(ctx, backend.CompanionKey(key)); err != nil && !backend.IsNotFound(err) {
		log.Warn().Err(err).Msg("remove companion failed")
	}

	metrics.ObserveFileOp("delete", string(cat), true)
	fs.invalidate(ctx)
	fs.record(ctx, model.ActionDelete, cat, key, 0, actor, clientIP, true, MsgDeleted)

	if fs.events != nil && fs.eventCfg.Enabled && fs.eventCfg.Object.Deleted {
		err := queue.PublishObjectDeleted(ctx, fs.events, queue.ObjectDeletedPayload{
			Object: fs.ref(cat, key, 0, ""),
			Actor:  actor,
		}, eventOpts(ctx)...)
		if err != nil {
			log.Warn().Err(err).Msg("publish object deleted failed")
		}
	}

	log.Info().Msg("file deleted")

	return types.ActionResult{Success: true, Message: MsgDeleted}, nil
}

// InvalidateListings 清除全部列表缓存，返回删除的键数.
func InvalidateListings(ctx context.Context, c *cache.Cache) (int, error) {
	if c == nil {
		return 0, nil
	}

	return c.DeletePrefix(ctx, GalleryCachePrefix)
}

func (fs *FileService) invalidate(ctx context.Context) {
	n, err := InvalidateListings(context.WithoutCancel(ctx), fs.cache)
	if err != nil {
		nlog.Logger().Warn().Err(err).Msg("listing cache invalidation failed")

		return
	}

	nlog.Logger().Debug().Int("keys", n).Msg("listing cache invalidated")
}

func (fs *FileService) record(ctx context.Context, action string, cat types.Category, key string,
	size int64, actor, clientIP string, ok bool, msg string,
) {
	if fs.activity == nil {
		return
	}

	err := fs.activity.Record(context.WithoutCancel(ctx), &model.Activity{
		Action:    action,
		Category:  string(cat),
		ObjectKey: key,
		Size:      size,
		Actor:     actor,
		Success:   ok,
		Message:   Truncate(msg, 512),
		ClientIP:  clientIP,
	})
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("action", action).Msg("activity record failed")
	}
}

func (fs *FileService) ref(cat types.Category, key string, size int64, contentType string) queue.ObjectRef {
	return queue.ObjectRef{
		Backend:     fs.backend.Name(),
		ObjectKey:   key,
		Category:    string(cat),
		Size:        size,
		ContentType: contentType,
	}
}

// Truncate 截断到最多 n 字节，不切开多字节字符.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n]
}

// eventOpts 对象事件的公共头部：链路 ID 与生产者.
func eventOpts(ctx context.Context) []func(*queue.EventHeader) {
	return []func(*queue.EventHeader){
		queue.WithTraceID(tracing.TraceID(ctx)),
		queue.WithProducer(EventProducer),
	}
}

var errTooLarge = errors.New("upload exceeds size limit")

// limitedReader 大小未知的上传在读取时检查上限.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, errTooLarge
	}

	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}

	n, err := l.r.Read(p)
	l.remaining -= int64(n)

	if l.remaining < 0 {
		return n, errTooLarge
	}

	return n, err
}
