package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/asakaida/entitystore/internal/infrastructure/cache"
	"github.com/asakaida/entitystore/internal/infrastructure/logger"
)

const (
	gaugeRefreshInterval = 15 * time.Second
	shutdownTimeout      = 30 * time.Second
)

var metricsPortFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the entity type cache in sync and serve Prometheus metrics",
	Long: `Listen for entity type changes made by other instances and serve
Prometheus metrics on /metrics when a metrics port is configured
(METRICS_PORT or --metrics-port). Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := cfg.Metrics.Port
		if cmd.Flags().Changed("metrics-port") {
			port = metricsPortFlag
		}

		listener := cache.NewMetadataListener(cfg.Database.ConnectionString(), metadata)
		if err := listener.Start(); err != nil {
			return err
		}
		defer listener.Stop()

		serverErrors := make(chan error, 1)
		var server *http.Server
		if port > 0 {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				if err := pg.HealthCheck(); err != nil {
					http.Error(w, err.Error(), http.StatusServiceUnavailable)
					return
				}
				w.WriteHeader(http.StatusOK)
			})
			server = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErrors <- fmt.Errorf("metrics server error: %w", err)
				}
			}()
			logger.Logger.Infow("Metrics server listening", "port", port)
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		ticker := time.NewTicker(gaugeRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case err := <-serverErrors:
				return err
			case <-ticker.C:
				exporter.Update()
			case sig := <-sigChan:
				logger.Logger.Infow("Received signal, shutting down", "signal", sig.String())
				if server == nil {
					return nil
				}
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Shutdown(ctx)
			}
		}
	},
}

func init() {
	serveCmd.Flags().IntVar(&metricsPortFlag, "metrics-port", 0, "Port of the metrics server, 0 disables it (default METRICS_PORT)")
}
