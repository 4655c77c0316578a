package service

import (
	"context"
	"fmt"

	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	"github.com/yeisme/mediavault/pkg/internal/types"
	nlog "github.com/yeisme/mediavault/pkg/log"
)

// CleanupOrphanCompanions 删除主对象已不存在的伴随 JSON，返回删除数量.
func (fs *FileService) CleanupOrphanCompanions(ctx context.Context) (int, error) {
	removed := 0

	for _, cat := range types.Categories {
		objs, err := fs.backend.List(ctx, cat.Folder())
		if err != nil {
			return removed, fmt.Errorf("list %s: %w", cat.Folder(), err)
		}

		present := make(map[string]struct{}, len(objs))
		for _, o := range objs {
			present[o.Name] = struct{}{}
		}

		for _, o := range objs {
			if !backend.IsCompanion(o.Name) {
				continue
			}

			owner := o.Name[:len(o.Name)-len(backend.CompanionSuffix)]
			if owner == "" {
				continue
			}

			if _, ok := present[owner]; ok {
				continue
			}

			if err := fs.backend.Remove(ctx, o.Key); err != nil && !backend.IsNotFound(err) {
				nlog.Logger().Warn().Err(err).Str("key", o.Key).Msg("remove orphan companion failed")

				continue
			}

			removed++
		}
	}

	if removed > 0 {
		fs.invalidate(ctx)
	}

	return removed, nil
}
