package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/asakaida/entitystore/internal/infrastructure/config"
	"github.com/asakaida/entitystore/internal/infrastructure/database"
	"github.com/asakaida/entitystore/internal/infrastructure/logger"
	"github.com/asakaida/entitystore/internal/infrastructure/metrics"
	"github.com/asakaida/entitystore/internal/repositories/postgres"
	"github.com/asakaida/entitystore/internal/services"
)

var (
	envFlag string

	cfg       *config.Config
	pg        *database.Postgres
	collector *metrics.Collector
	exporter  *metrics.PrometheusExporter
	registry  *prometheus.Registry
	metadata  *services.MetadataService
)

var rootCmd = &cobra.Command{
	Use:   "entitystore",
	Short: "Runtime defined entity storage on PostgreSQL",
	Long: `entitystore manages entity types defined at runtime and the PostgreSQL
tables storing their entities.

Entity types are applied from schema files (.schema, .yaml, .toml, .json)
and stored in the entity_types table created by "migrate up".`,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pg != nil {
			pg.Close()
		}
		logger.Cleanup()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and wires the database, metrics and the
// metadata service shared by all commands
func setup(cmd *cobra.Command, args []string) error {
	if err := config.InitConfig(envFlag); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	var err error
	cfg, err = config.Load()
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
	logger.Logger.Debugw("Connected to database",
		"env", envFlag,
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Database)

	collector = metrics.NewCollector()
	registry = prometheus.NewRegistry()
	exporter = metrics.NewPrometheusExporter(collector, registry)
	recorder := metrics.Tee(collector, exporter)

	metadata = services.NewMetadataService(pg.DB,
		services.WithCacheSize(cfg.Metadata.CacheSize),
		services.WithCacheTTL(cfg.Metadata.CacheTTL()),
		services.WithRecorder(recorder),
		services.WithRepositoryOptions(
			postgres.WithNamer(postgres.NewNamer(cfg.Store.MaxIdentifierLength)),
			postgres.WithBatchSize(cfg.Store.BatchSize),
			postgres.WithPageSize(cfg.Store.PageSize),
			postgres.WithMetrics(recorder),
		),
	)
	collector.SetCacheSize(metadata.CacheLen)
	return nil
}
