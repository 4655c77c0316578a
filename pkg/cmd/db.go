package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/storage/db"
)

var (
	activityLimit int

	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "activity database commands",
	}

	dbTypesCmd = &cobra.Command{
		Use:     "types",
		Short:   "print supported database types",
		Aliases: []string{"ls"},
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range db.GetRegisteredDBTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}

	// db.New 连接时已自动迁移，这里只是显式入口.
	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update the activity tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbc, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer dbc.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", dbc.Type())

			return nil
		},
	}

	dbActivityCmd = &cobra.Command{
		Use:   "activity",
		Short: "print the most recent admin activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbc, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer dbc.Close()

			items, err := service.NewActivityService(dbc.DB).Recent(cmd.Context(), activityLimit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tACTION\tKEY\tACTOR\tOK\tMESSAGE")

			for _, it := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", it.CreatedAt, it.Action, it.Key, it.Actor, it.Success, it.Message)
			}

			return w.Flush()
		},
	}
)

func openDB(cmd *cobra.Command) (*db.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if !cfg.DB.Enabled {
		return nil, errors.New("db.enabled is false; the activity log is not configured")
	}

	return db.New(cmd.Context(), &cfg.DB)
}

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	dbActivityCmd.Flags().IntVarP(&activityLimit, "limit", "n", service.DefaultActivityLimit, "number of entries")

	dbCmd.AddCommand(dbTypesCmd, dbMigrateCmd, dbActivityCmd)
	rootCmd.AddCommand(dbCmd)
}
