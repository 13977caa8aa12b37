package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sovereigntyai/sovereign/db"
	"github.com/sovereigntyai/sovereign/internal/secret"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(*cobra.Command, []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, "migrate")
	if err != nil {
		return err
	}

	if err := applySecrets(cfg, secret.Env{}); err != nil {
		return err
	}

	return db.Migrate(cfg.PostgresURL(), logger)
}
