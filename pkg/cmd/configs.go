package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/service"
)

// debug 是否额外输出 viper 的调试信息.
var debug bool

var (
	// config 子命令.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "config subcommands",
	}

	// 打印当前使用的配置文件路径.
	pathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the path of the current config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}

			cfg := configs.GetViper().ConfigFileUsed()
			if cfg == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no config file used (defaults and environment only)")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cfg)

			return nil
		},
	}

	// 以 JSON 打印生效配置，敏感字段打码.
	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "print the current config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}

			if debug {
				configs.GetViper().Debug()
			}

			redacted := *c
			redacted.Auth.AdminPassword = mask(redacted.Auth.AdminPassword)
			redacted.Auth.AdminPasswordHash = mask(redacted.Auth.AdminPasswordHash)
			redacted.Auth.Secret = mask(redacted.Auth.Secret)
			redacted.Storage.S3.SecretAccessKey = mask(redacted.Storage.S3.SecretAccessKey)
			redacted.Storage.Supabase.ServiceRoleKey = mask(redacted.Storage.Supabase.ServiceRoleKey)
			redacted.KV.Redis.Password = mask(redacted.KV.Redis.Password)
			redacted.DB.Password = mask(redacted.DB.Password)

			b, err := json.MarshalIndent(redacted, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}

	// 加载并校验配置.
	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "load the config and run validation rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "config OK")

			return nil
		},
	}

	// 生成 auth.admin_password_hash 使用的 bcrypt 哈希.
	hashPasswordCmd = &cobra.Command{
		Use:   "hash-password [password]",
		Short: "print a bcrypt hash for auth.admin_password_hash (reads stdin when no argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string

			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}

				password = strings.TrimRight(line, "\r\n")
			}

			if password == "" {
				return fmt.Errorf("password must not be empty")
			}

			hash, err := service.HashPassword(password)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)

			return nil
		},
	}
)

func mask(s string) string {
	if s == "" {
		return ""
	}

	return "******"
}

// registerConfigsCommands 注册 CLI 子命令.
func registerConfigsCommands() {
	debugCmd.Flags().BoolVar(&debug, "viper", false, "also dump viper internals")

	configCmd.AddCommand(pathCmd, debugCmd, validateCmd, hashPasswordCmd)

	rootCmd.AddCommand(configCmd)
}

