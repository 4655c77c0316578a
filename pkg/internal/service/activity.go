package service

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid"
	"gorm.io/gorm"

	"github.com/yeisme/mediavault/pkg/internal/model"
	"github.com/yeisme/mediavault/pkg/internal/types"
)

const (
	// DefaultActivityLimit 最近操作默认条数.
	DefaultActivityLimit = 50
	// MaxActivityLimit 单次查询上限.
	MaxActivityLimit = 500
)

var (
	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
	ulidMu      sync.Mutex
)

// newActivityID 生成按时间有序的 ULID.
func newActivityID(t time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), ulidEntropy).String()
}

// ActivityService 操作日志，数据库未启用时为 nil，所有方法对 nil 接收者安全.
type ActivityService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewActivityService 创建操作日志服务，db 为 nil 时返回 nil.
func NewActivityService(db *gorm.DB) *ActivityService {
	if db == nil {
		return nil
	}

	return &ActivityService{db: db, now: time.Now}
}

// Record 写入一条操作日志，ID 与时间为空时自动填充.
func (s *ActivityService) Record(ctx context.Context, a *model.Activity) error {
	if s == nil || a == nil {
		return nil
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}

	if a.ID == "" {
		a.ID = newActivityID(a.CreatedAt)
	}

	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("record activity: %w", err)
	}

	return nil
}

// Recent 返回最近的操作，按时间倒序.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]types.ActivityView, error) {
	if s == nil {
		return []types.ActivityView{}, nil
	}

	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	limit = min(limit, MaxActivityLimit)

	var rows []model.Activity
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}

	out := make([]types.ActivityView, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.ActivityView{
			ID:        r.ID,
			Action:    r.Action,
			Category:  r.Category,
			Key:       r.ObjectKey,
			Size:      r.Size,
			Actor:     r.Actor,
			Success:   r.Success,
			Message:   r.Message,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return out, nil
}

// Prune 删除 before 之前的记录，返回删除条数.
func (s *ActivityService) Prune(ctx context.Context, before time.Time) (int64, error) {
	if s == nil {
		return 0, nil
	}

	res := s.db.WithContext(ctx).Where("created_at < ?", before.UTC()).Delete(&model.Activity{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune activity: %w", res.Error)
	}

	return res.RowsAffected, nil
}
