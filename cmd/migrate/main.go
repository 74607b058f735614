package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-operations/internal/config"
	"github.com/hackgods/clinic-operations/internal/logging"
	"github.com/hackgods/clinic-operations/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply the clinic database schema",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(upCmd(), downCmd(), forceCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// open builds a migrator over the embedded SQL files. The returned close
// releases both the migrator and the database handle.
func open() (*migrate.Migrate, zerolog.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New("migrate", cfg.Env, cfg.LogLevel)

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		return nil, logger, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, logger, nil, fmt.Errorf("ping db: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = db.Close()
		return nil, logger, nil, fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, logger, nil, fmt.Errorf("source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		_ = db.Close()
		return nil, logger, nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, logger, func() { _, _ = m.Close() }, nil
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, logger, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migrate up: %w", err)
			}
			logger.Info().Msg("migrations complete")
			return nil
		},
	}
}

func downCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")

			m, logger, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			if steps > 0 {
				err = m.Steps(-steps)
			} else {
				err = m.Down()
			}
			if err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migrate down: %w", err)
			}
			logger.Info().Int("steps", steps).Msg("rollback complete")
			return nil
		},
	}
	cmd.Flags().Int("steps", 1, "Number of migrations to roll back (0 rolls back everything)")
	return cmd
}

func forceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version: %w", err)
			}

			m, logger, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := m.Force(version); err != nil {
				return fmt.Errorf("force version: %w", err)
			}
			logger.Info().Int("version", version).Msg("forced schema version")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			if err != nil {
				return fmt.Errorf("read version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		},
	}
}
