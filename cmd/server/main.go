package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"climate-dashboard/internal/config"
	"climate-dashboard/internal/handlers"
	"climate-dashboard/internal/services"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

const version = "1.0.0"

func main() {
	cfgFile := flag.String("config", "", "Path to a YAML config file (default: ./climate.yaml if present)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("climate-api", version, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting climate dashboard API server", logging.Fields{
		"version":     version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"data_source": cfg.Data.Source,
		"data_path":   cfg.Data.Path,
	})

	metricsCollector := metrics.NewCollector("climate_dashboard")

	// The dataset is loaded once; a load failure ends the session.
	set, db, err := services.OpenDataset(ctx, cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load dataset", logging.Fields{
			"data_source": cfg.Data.Source,
			"data_path":   cfg.Data.Path,
		}, err)
	}

	var store handlers.HealthChecker
	if db != nil {
		defer db.Close()
		store = db
	}

	dashboardService := services.NewDashboardService(
		set,
		cfg.Dashboard.DefaultYearFrom,
		cfg.Dashboard.DefaultYearTo,
		logger,
		metricsCollector,
	)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, store, logger, metricsCollector)
	router := handlers.NewRouter(dashboardHandler, logger, metricsCollector, prometheus.DefaultGatherer)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address":      server.Addr,
			"observations": set.Len(),
			"source":       set.Source(),
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
