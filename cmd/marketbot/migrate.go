package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/nse-market-bot/config"
	"github.com/upb/nse-market-bot/repositories/postgres"
)

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the knowledge base schema",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(mg *postgres.Migrator) error {
				return mg.Up(cmd.Context())
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(mg *postgres.Migrator) error {
				return mg.Down(cmd.Context())
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(mg *postgres.Migrator) error {
				v, dirty, err := mg.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			})
		},
	})

	return migrateCmd
}

func withMigrator(cmd *cobra.Command, fn func(*postgres.Migrator) error) error {
	cfg, logger, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Store.Backend != config.StoreBackendPostgres {
		return fmt.Errorf("migrations need the postgres store, STORE_BACKEND is %q", cfg.Store.Backend)
	}

	mg, err := postgres.NewMigrator(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() { _ = mg.Close() }()

	return fn(mg)
}
