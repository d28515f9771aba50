package cmd

import (
	"github.com/spf13/cobra"

	"geminiproxy/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the chat table if it does not exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := storage.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := storage.Migrate(db, cfg.Database.Driver); err != nil {
			return err
		}
		cmd.Printf("chat table ready (%s)\n", cfg.Database.Driver)
		return nil
	},
}
