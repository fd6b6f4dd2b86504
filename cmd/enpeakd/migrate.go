package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"EnPeak/internal/config"
	"EnPeak/internal/storage/sqlstore"
)

func newMigrateCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "对 SQL 存储执行数据库迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := sqlstore.Open(cmd.Context(), sqlstore.Config{
				Driver:         cfg.Storage.SQL.Driver,
				DSN:            cfg.Storage.SQL.DSN,
				SkipMigrations: true,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := db.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, version := range applied {
				fmt.Fprintf(out, "applied %s\n", version)
			}
			fmt.Fprintf(out, "%s: %d migration(s) applied\n", db.Driver(), len(applied))
			return nil
		},
	}
}
