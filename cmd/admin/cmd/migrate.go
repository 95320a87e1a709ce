package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/resquick/portal/internal/config"
	"github.com/resquick/portal/internal/db"
)

func MigrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or list database migrations",
	}

	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator) error {
				return m.Up(cmd.Context())
			})
		},
	})

	migrate.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator) error {
				return m.Down(cmd.Context())
			})
		},
	})

	migrate.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether each is applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator) error {
				states, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range states {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%05d  %-8s %s\n", s.Version, state, s.File)
				}
				return nil
			})
		},
	})

	return migrate
}

func withMigrator(ctx context.Context, fn func(m *db.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	driver, dsn := config.Database()

	conn, err := db.Open(ctx, driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close(conn) }()

	m, err := db.NewMigrator(conn.DB, driver)
	if err != nil {
		return err
	}
	return fn(m)
}
