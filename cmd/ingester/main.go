package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"climate-dashboard/internal/config"
	"climate-dashboard/internal/loader"
	"climate-dashboard/internal/repository"
	"climate-dashboard/internal/services"
	"climate-dashboard/migrations"
	"climate-dashboard/pkg/database"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

func main() {
	cfgFile := flag.String("config", "", "Path to a YAML config file")
	csvPath := flag.String("csv", "", "CSV file to seed from (default: data.path from config)")
	batchSize := flag.Int("batch-size", services.DefaultBatchSize, "Number of observations per transaction")
	migrate := flag.Bool("migrate", false, "Apply the schema before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Database.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid database configuration: %v\n", err)
		os.Exit(1)
	}

	path := *csvPath
	if path == "" {
		path = cfg.Data.Path
	}

	logger := logging.NewStructuredLogger("climate-ingester", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting indicator ingestion", logging.Fields{
		"version":    "1.0.0",
		"csv":        path,
		"batch_size": *batchSize,
		"driver":     cfg.Database.Driver,
	})

	metricsCollector := metrics.NewCollector("climate_ingester")

	db, err := database.Open(services.DatabaseConfig(cfg.Database), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	repo := repository.NewIndicatorRepository(db, logger, metricsCollector)

	if *migrate {
		if err := repo.Migrate(ctx, migrations.Up); err != nil {
			logger.Fatal(ctx, "[INGESTER_ERROR] Schema migration failed", logging.Fields{}, err)
		}
	}

	ingestionService := services.NewIngestionService(repo, logger, metricsCollector)

	result, err := ingestionService.Ingest(ctx, loader.FileSource{Path: path}, *batchSize)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{
			"csv": path,
		}, err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Source:             %s (%s layout)\n", result.Source, result.Layout)
	fmt.Printf("Rows Read:          %d\n", result.RowsRead)
	fmt.Printf("Observations:       %d\n", result.Observations)
	fmt.Printf("Stored Records:     %d in %d batches\n", result.StoredRecords, result.Batches)
	fmt.Printf("Table Size:         %d\n", result.StoredAfterLoad)
	if result.Duplicates > 0 {
		fmt.Printf("Duplicate Keys:     %d (last value kept)\n", result.Duplicates)
	}
	fmt.Printf("Duration:           %v\n", result.Duration)

	if len(result.Dropped) > 0 {
		reasons := make([]string, 0, len(result.Dropped))
		for reason := range result.Dropped {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)

		fmt.Println("\nDropped:")
		for _, reason := range reasons {
			fmt.Printf("  - %-16s %d\n", reason, result.Dropped[reason])
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed successfully", logging.Fields{
		"stored_records":   result.StoredRecords,
		"table_size":       result.StoredAfterLoad,
		"duration_seconds": result.Duration.Seconds(),
	})
}
