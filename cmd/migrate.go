package main

import (
	"github.com/spf13/cobra"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply gorm AutoMigrate to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := model.AutoMigrate(a.db.Gorm); err != nil {
				return err
			}
			a.log.Info().Msg("migrations applied")
			return nil
		},
	}
}
