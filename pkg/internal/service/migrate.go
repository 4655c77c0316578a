package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yeisme/mediavault/pkg/internal/model"
	"github.com/yeisme/mediavault/pkg/internal/storage/backend"
	"github.com/yeisme/mediavault/pkg/internal/types"
	nlog "github.com/yeisme/mediavault/pkg/log"
	"github.com/yeisme/mediavault/pkg/queue"
)

// migrationOrder 迁移时遍历分类的顺序.
var migrationOrder = []types.Category{
	types.CategoryImage, types.CategoryVideo, types.CategoryDocument, types.CategoryAudio,
}

// MigratePlaceholders 把 .link 占位文件重命名为清洗后的显示名，使存储名与显示名一致.
//
// 显示名取伴随 JSON 的 displayName，没有时取去掉 .link 的文件名；结果与原名相同的条目跳过.
// apply 为 false 时只返回计划；目标已存在时依次追加 _1、_2.
func (fs *FileService) MigratePlaceholders(ctx context.Context, apply bool, actor string) ([]types.RenameOp, error) {
	ops, err := fs.planRenames(ctx)
	if err != nil {
		return nil, err
	}

	if !apply {
		return ops, nil
	}

	renamed := 0

	for i := range ops {
		if err := fs.applyRename(ctx, &ops[i], actor); err != nil {
			ops[i].Error = err.Error()

			nlog.Logger().Warn().Err(err).Str("from", ops[i].From).Msg("placeholder rename failed")

			continue
		}

		renamed++
	}

	if renamed > 0 {
		fs.invalidate(ctx)
	}

	return ops, nil
}

func (fs *FileService) planRenames(ctx context.Context) ([]types.RenameOp, error) {
	ops := []types.RenameOp{}

	for _, cat := range migrationOrder {
		objs, err := backend.ListEntries(ctx, fs.backend, cat.Folder())
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", cat.Folder(), err)
		}

		for _, obj := range objs {
			if !IsLinkName(obj.Name) {
				continue
			}

			base := TrimLinkSuffix(obj.Name)
			display := base

			if c, err := backend.ReadCompanion(ctx, fs.backend, obj.Key); err == nil && strings.TrimSpace(c.DisplayName) != "" {
				display = strings.TrimSpace(c.DisplayName)
			}

			target := sanitizeAt(strings.TrimSpace(display), fs.now())
			if target == base {
				continue
			}

			ops = append(ops, types.RenameOp{Category: cat, From: obj.Name, To: target})
		}
	}

	return ops, nil
}

func (fs *FileService) applyRename(ctx context.Context, op *types.RenameOp, actor string) error {
	folder := op.Category.Folder()
	oldKey := backend.JoinKey(folder, op.From)

	final, err := fs.freeKey(ctx, backend.JoinKey(folder, op.To))
	if err != nil {
		return err
	}

	if err := backend.Copy(ctx, fs.backend, oldKey, final); err != nil {
		return fmt.Errorf("copy %s: %w", oldKey, err)
	}

	err = backend.Copy(ctx, fs.backend, backend.CompanionKey(oldKey), backend.CompanionKey(final))
	if err != nil && !backend.IsNotFound(err) {
		return fmt.Errorf("copy companion of %s: %w", oldKey, err)
	}

	if err := fs.backend.Remove(ctx, oldKey); err != nil && !backend.IsNotFound(err) {
		return fmt.Errorf("remove %s: %w", oldKey, err)
	}

	if err := fs.backend.Remove(ctx, backend.CompanionKey(oldKey)); err != nil && !backend.IsNotFound(err) {
		nlog.Logger().Warn().Err(err).Str("key", oldKey).Msg("remove old companion failed")
	}

	op.To = final[len(folder)+1:]
	op.Applied = true

	fs.record(ctx, model.ActionRename, op.Category, final, 0, actor, "", true, "renamed from "+op.From)

	if fs.events != nil && fs.eventCfg.Enabled {
		err := queue.PublishObjectRenamed(ctx, fs.events, queue.ObjectRenamedPayload{
			From: fs.ref(op.Category, oldKey, 0, ""),
			To:   fs.ref(op.Category, final, 0, ""),
		}, eventOpts(ctx)...)
		if err != nil {
			nlog.Logger().Warn().Err(err).Msg("publish object renamed failed")
		}
	}

	nlog.Logger().Info().Str("from", oldKey).Str("to", final).Msg("placeholder renamed")

	return nil
}

// freeKey 目标键被占用时追加 _1、_2 直到可用.
func (fs *FileService) freeKey(ctx context.Context, key string) (string, error) {
	candidate := key

	for i := 1; ; i++ {
		exists, err := backend.Exists(ctx, fs.backend, candidate)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}

		if !exists {
			return candidate, nil
		}

		candidate = key + "_" + strconv.Itoa(i)
	}
}
