// Package cmd contains the command line applications for the project.
package cmd

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/log"
)

var (
	// configPath 配置文件路径或目录，为空时在默认位置查找.
	configPath string
	// envFile 启动前加载的 dotenv 文件，不存在时忽略.
	envFile string

	rootCmd = &cobra.Command{
		Use:           configs.AppName,
		Short:         "A self-hosted media gallery backed by local disk or object storage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file or directory")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading config")

	registerServeCommands()
	registerConfigsCommands()
	registerPlaceholderCommands()
	registerKVCommands()
	registerDBCommands()
	registerMQCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadEnvFile 加载 dotenv，已存在的环境变量不会被覆盖.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// loadConfig 供需要配置的子命令使用.
func loadConfig() (*configs.AppConfig, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, err
	}

	log.Init()

	return configs.GetConfig(), nil
}

// Main 执行命令并在出错时打印到 stderr，返回进程退出码.
func Main() int {
	if err := Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		return 1
	}

	return 0
}
