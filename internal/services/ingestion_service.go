package services

import (
	"context"
	"fmt"
	"time"

	"climate-dashboard/internal/loader"
	"climate-dashboard/internal/models"
	"climate-dashboard/internal/repository"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

// DefaultBatchSize is used when Ingest is called with a non-positive batch size.
const DefaultBatchSize = 500

// DuplicateKeyReason labels observations that repeat an (indicator, year)
// pair already seen in the same load. The table keeps the last one.
const DuplicateKeyReason = "duplicate_key"

// IngestionService seeds the observation table from a CSV source
type IngestionService struct {
	repo       repository.IndicatorRepository
	normalizer *loader.Normalizer
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	Source          string
	Layout          string
	RowsRead        int
	Observations    int
	StoredRecords   int
	Batches         int
	Duplicates      int
	Dropped         map[string]int
	Duration        time.Duration
	StoredAfterLoad int
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.IndicatorRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:       repo,
		normalizer: loader.NewNormalizer(logger, metricsCollector),
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// Ingest normalizes src and upserts the observations in batches of batchSize.
// Re-running it with the same input leaves the table unchanged.
func (s *IngestionService) Ingest(ctx context.Context, src loader.Source, batchSize int) (*IngestionResult, error) {
	startTime := time.Now()
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"source":     src.Name(),
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	set, report, err := s.normalizer.LoadWithReport(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", src.Name(), err)
	}

	result := &IngestionResult{
		Source:       report.Source,
		Layout:       report.Layout,
		RowsRead:     report.RowsRead,
		Observations: report.Observations,
		Dropped:      report.Dropped,
	}

	observations := set.Observations()
	result.Duplicates = countDuplicateKeys(observations)
	if result.Duplicates > 0 {
		s.logger.Warn(ctx, "[INGEST_DUPLICATES] Repeated indicator/year pairs collapse to the last value", logging.Fields{
			"source":     src.Name(),
			"duplicates": result.Duplicates,
			"stage":      "STORE",
		})
		s.metrics.RecordDropped(DuplicateKeyReason, result.Duplicates)
	}

	for start := 0; start < len(observations); start += batchSize {
		end := min(start+batchSize, len(observations))
		batch := observations[start:end]

		if err := s.repo.UpsertObservationsBatch(ctx, batch, src.Name()); err != nil {
			s.logger.Error(ctx, "[INGEST_BATCH_ERROR] Batch upsert failed", logging.Fields{
				"batch":  result.Batches,
				"offset": start,
				"stage":  "STORE",
			}, err)
			s.metrics.RecordLoadError("store_failed")
			return result, fmt.Errorf("failed to store batch at offset %d: %w", start, err)
		}
		result.StoredRecords += len(batch)
		result.Batches++
	}

	stored, err := s.repo.CountObservations(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to count stored observations: %w", err)
	}
	result.StoredAfterLoad = stored
	result.Duration = time.Since(startTime)

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"source":             result.Source,
		"layout":             result.Layout,
		"rows_read":          result.RowsRead,
		"stored_records":     result.StoredRecords,
		"batches":            result.Batches,
		"duplicates":         result.Duplicates,
		"dropped":            result.Dropped,
		"table_size":         result.StoredAfterLoad,
		"duration_seconds":   result.Duration.Seconds(),
		"records_per_second": float64(result.StoredRecords) / result.Duration.Seconds(),
		"stage":              "COMPLETE",
	})

	return result, nil
}

func countDuplicateKeys(observations []models.Observation) int {
	type key struct {
		indicator string
		year      int
	}
	seen := make(map[key]struct{}, len(observations))
	duplicates := 0
	for _, obs := range observations {
		k := key{obs.Indicator, obs.Year}
		if _, ok := seen[k]; ok {
			duplicates++
			continue
		}
		seen[k] = struct{}{}
	}
	return duplicates
}
