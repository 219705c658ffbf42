package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/asakaida/entitystore/internal/infrastructure/config"
	"github.com/asakaida/entitystore/internal/infrastructure/database"
	"github.com/asakaida/entitystore/internal/infrastructure/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

const (
	migrationsPathSuffix = "internal/infrastructure/database/migrations/postgres"
)

var (
	envFlag string
	pg      *database.Postgres
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool for entitystore",
	Long: `Database migration tool for entitystore.
Manages the entity type metadata tables using golang-migrate.
Entity tables themselves are created by "entitystore apply".`,
	PersistentPreRunE: setupDatabase,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pg != nil {
			pg.Close()
		}
		logger.Cleanup()
	},
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrate(func(m *migrate.Migrate) error {
			err := m.Up()
			if err == migrate.ErrNoChange {
				logger.Logger.Info("No migrations to apply")
				return nil
			}
			if err != nil {
				return fmt.Errorf("migration up failed: %w", err)
			}
			logger.Logger.Info("Migration up completed successfully")
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback migrations",
	Long:  `Rollback the specified number of migrations (default: 1).`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid number of steps %q", args[0])
			}
			steps = n
		}
		return withMigrate(func(m *migrate.Migrate) error {
			err := m.Steps(-steps)
			if err == migrate.ErrNoChange {
				logger.Logger.Info("No migrations to rollback")
				return nil
			}
			if err != nil {
				return fmt.Errorf("migration down failed: %w", err)
			}
			logger.Logger.Infow("Migration down completed successfully", "steps", steps)
			return nil
		})
	},
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate to a specific version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return withMigrate(func(m *migrate.Migrate) error {
			err := m.Migrate(uint(version))
			if err == migrate.ErrNoChange {
				logger.Logger.Infow("Already at version", "version", version)
				return nil
			}
			if err != nil {
				return fmt.Errorf("migration goto failed: %w", err)
			}
			logger.Logger.Infow("Migration goto completed successfully", "version", version)
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current migration version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrate(func(m *migrate.Migrate) error {
			version, dirty, err := m.Version()
			if err == migrate.ErrNilVersion {
				fmt.Fprintln(cmd.OutOrStdout(), "Current version: No migrations applied yet")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			if dirty {
				fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d (dirty - migration may have failed)\n", version)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d\n", version)
			}
			return nil
		})
	},
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force set migration version (use with caution)",
	Long:  `Force set the migration version without running migrations. Use with caution.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return withMigrate(func(m *migrate.Migrate) error {
			if err := m.Force(version); err != nil {
				return fmt.Errorf("migration force failed: %w", err)
			}
			logger.Logger.Infow("Migration forced", "version", version)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(forceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupDatabase(cmd *cobra.Command, args []string) error {
	if err := config.InitConfig(envFlag); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Initialize(cfg.Log.Level, cfg.Log.JSON); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	pg, err = database.NewPostgres(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Logger.Infow("Connected to database",
		"env", envFlag,
		"user", cfg.Database.User,
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Database)
	return nil
}

func withMigrate(fn func(m *migrate.Migrate) error) error {
	migrationsPath, err := getMigrationsPath()
	if err != nil {
		return err
	}

	m, err := pg.NewMigrate(migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()

	return fn(m)
}

func getMigrationsPath() (string, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return "", fmt.Errorf("failed to find project root: %w", err)
	}

	migrationsPath := filepath.Join(projectRoot, migrationsPathSuffix)
	logger.Logger.Debugw("Using migrations path", "path", migrationsPath)
	return migrationsPath, nil
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}
