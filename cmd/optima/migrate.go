package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/config"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/obs"
)

var migrationsPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(func(m *migrate.Migrate) error { return m.Up() })
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(func(m *migrate.Migrate) error { return m.Steps(-1) })
	},
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrationsPath, "path", "migrations", "directory holding migration files")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func runMigration(apply func(*migrate.Migrate) error) error {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return errors.New("OPTIMA_PG_DSN is required to run migrations")
	}

	m, err := migrate.New("file://"+migrationsPath, pgxURL(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	if err := apply(m); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			obs.LogEvent("migrations already up to date", nil)
			return nil
		}
		return err
	}
	obs.LogEvent("migrations applied", nil)
	return nil
}

// pgxURL rewrites a postgres:// DSN onto the pgx/v5 migrate driver scheme.
func pgxURL(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") {
		return "pgx5://" + strings.TrimPrefix(dsn, "postgres://")
	}
	if strings.HasPrefix(dsn, "postgresql://") {
		return "pgx5://" + strings.TrimPrefix(dsn, "postgresql://")
	}
	return dsn
}
