package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/mediavault/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the gallery HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.NewApp(ctx, configPath)
		if err != nil {
			return err
		}

		return a.Run(ctx)
	},
}

// registerServeCommands 注册 serve 命令，根命令不带子命令时同样启动服务.
func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)

	rootCmd.RunE = serveCmd.RunE
}
