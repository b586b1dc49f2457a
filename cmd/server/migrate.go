package main

import (
	"github.com/spf13/cobra"

	"github.com/yukikurage/task-approval-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		db, err := database.Open(cfg, log)
		if err != nil {
			return err
		}
		return database.Migrate(db, log)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
