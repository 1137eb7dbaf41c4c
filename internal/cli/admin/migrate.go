package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlcilliers/cvchat/internal/config"
	"github.com/jlcilliers/cvchat/internal/database"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply the embedded schema migrations for the postgres index backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.HasDatabase() {
				return fmt.Errorf("DATABASE_URL is required")
			}

			down, _ := cmd.Flags().GetBool("down")
			if down {
				return database.MigrateDown(cfg.DatabaseURL)
			}
			return database.Migrate(cfg.DatabaseURL)
		},
	}

	cmd.Flags().Bool("down", false, "Roll back every migration")
	return cmd
}
