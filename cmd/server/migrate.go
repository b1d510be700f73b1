package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/hospital-itsm/pkg/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB, err := database.Open(database.Config{Path: a.cfg.Database.Path}, a.logger)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			applied, err := database.NewMigrator(sqlDB, a.logger).Run(cmd.Context(), database.Schema())
			if err != nil {
				return err
			}
			a.logger.Info("Migrations complete", zap.Int("applied", applied))
			cmd.Printf("applied %d migration(s)\n", applied)
			return nil
		},
	}
}
