package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lifeadmin-backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply the embedded schema migrations to DATABASE_URL.

serve applies them on startup as well; migrate is for deploy pipelines that
run schema changes as a separate step.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		database, err := db.New(cmd.Context(), cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.RunMigrations(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
