package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/mediavault/pkg/cache"
	"github.com/yeisme/mediavault/pkg/internal/service"
	kv "github.com/yeisme/mediavault/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:   "kv",
		Short: "listing cache store commands",
	}

	kvTypesCmd = &cobra.Command{
		Use:     "types",
		Short:   "print supported kv store types",
		Aliases: []string{"list", "ls"},
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range kv.GetRegisteredKVTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}

	// 列出当前缓存的列表响应键.
	kvKeysCmd = &cobra.Command{
		Use:   "keys [pattern]",
		Short: "print cached keys (default: gallery listings)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openKV(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			pattern := service.GalleryCachePrefix + "*"
			if len(args) == 1 {
				pattern = args[0]
			}

			keys, err := c.Keys(cmd.Context(), pattern)
			if err != nil {
				return err
			}

			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}

			return nil
		},
	}

	// 手动清空列表缓存，直接改动存储目录后使用.
	kvFlushCmd = &cobra.Command{
		Use:   "flush-listings",
		Short: "drop every cached gallery listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openKV(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := service.InvalidateListings(cmd.Context(), cache.NewCache(c))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached listings from %s\n", n, c.Type())

			return nil
		},
	}
)

func openKV(cmd *cobra.Command) (*kv.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	return kv.New(cmd.Context(), &cfg.KV)
}

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	kvCmd.AddCommand(kvTypesCmd, kvKeysCmd, kvFlushCmd)
	rootCmd.AddCommand(kvCmd)
}
