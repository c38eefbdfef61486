package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"REFERRAL_AUTH_BACK-END/internal/config"
	"REFERRAL_AUTH_BACK-END/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back or inspect the embedded PostgreSQL schema migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrateUp(databaseURL()); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(databaseURL(), func(m *store.Migrator) error {
				if err := m.Down(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "down").Wrap(err)
				}
				cmd.Println("Migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(databaseURL(), func(m *store.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "version").Wrap(err)
				}
				cmd.Printf("version=%d dirty=%t\n", v, dirty)
				return nil
			})
		},
	})

	return cmd
}

// databaseURL reads connection settings without requiring the server's
// JWT or SMTP configuration.
func databaseURL() string {
	config.LoadDotEnv()
	return config.FromEnv().GetDSN()
}

func migrateUp(url string) error {
	return withMigrator(url, func(m *store.Migrator) error {
		if err := m.Up(); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "up").Wrap(err)
		}
		return nil
	})
}

func withMigrator(url string, fn func(m *store.Migrator) error) (err error) {
	m, err := store.NewMigrator(url)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(m)
}
