package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"coveragesync/internal/db"
	"coveragesync/internal/syncer"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		Long: `Creates or upgrades the coverage_cache and sync_jobs tables.

Safe to run multiple times (idempotent).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.ValidateStore(); err != nil {
				return err
			}

			database, err := db.New(cmd.Context(), c.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("%w: %w", syncer.ErrPrecondition, err)
			}
			defer database.Close()

			if err := database.RunMigrations(c.cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed successfully")
			return nil
		},
	}
}
