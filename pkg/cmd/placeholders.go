package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/storage"
	"github.com/yeisme/mediavault/pkg/internal/storage/db"
)

var (
	applyRenames bool

	placeholdersCmd = &cobra.Command{
		Use:     "placeholders",
		Short:   "maintenance commands for .link placeholders and companion JSON",
		Aliases: []string{"ph"},
	}

	// 将 .link 占位文件按伴随 JSON 的 displayName 重命名.
	renameCmd = &cobra.Command{
		Use:   "rename",
		Short: "rename .link placeholders after their companion displayName (dry run unless --apply)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, closeFn, err := newFileService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			ops, err := fs.MigratePlaceholders(cmd.Context(), applyRenames, "cli")
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tFROM\tTO\tSTATUS")

			failed := 0

			for _, op := range ops {
				status := "planned"

				switch {
				case op.Error != "":
					status = "error: " + op.Error
					failed++
				case op.Applied:
					status = "renamed"
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", op.Category.Folder(), op.From, op.To, status)
			}

			_ = w.Flush()

			if !applyRenames && len(ops) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "\ndry run: re-run with --apply to rename")
			}

			if failed > 0 {
				return fmt.Errorf("%d renames failed", failed)
			}

			return nil
		},
	}

	// 清理孤立的伴随 JSON.
	cleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "remove companion JSON files whose media object no longer exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, closeFn, err := newFileService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := fs.CleanupOrphanCompanions(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphan companion files\n", n)

			return nil
		},
	}
)

// newFileService 只连接媒体后端与操作日志库，不启动缓存与消息队列.
func newFileService(cmd *cobra.Command) (*service.FileService, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()

	b, err := storage.NewBackend(ctx, &cfg.Storage)
	if err != nil {
		return nil, nil, err
	}

	closers := []func() error{b.Close}
	opts := []service.FileOption{}

	if cfg.DB.Enabled {
		if dbc, err := db.New(ctx, &cfg.DB); err == nil {
			closers = append(closers, dbc.Close)
			opts = append(opts, service.WithActivity(service.NewActivityService(dbc.DB)))
		}
	}

	closeFn := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	return service.NewFileService(b, &cfg.Storage, opts...), closeFn, nil
}

// registerPlaceholderCommands 注册占位文件维护命令.
func registerPlaceholderCommands() {
	renameCmd.Flags().BoolVar(&applyRenames, "apply", false, "perform the renames instead of printing the plan")

	placeholdersCmd.AddCommand(renameCmd, cleanupCmd)
	rootCmd.AddCommand(placeholdersCmd)
}
