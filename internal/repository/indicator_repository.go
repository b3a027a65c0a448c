package repository

import (
	"context"
	"fmt"
	"time"

	"climate-dashboard/internal/models"
	"climate-dashboard/migrations"
	"climate-dashboard/pkg/database"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

// IndicatorRepository provides data access for normalized indicator observations
type IndicatorRepository interface {
	// Schema operations
	Migrate(ctx context.Context, direction migrations.Direction) error

	// Observation operations
	UpsertObservationsBatch(ctx context.Context, observations []models.Observation, source string) error
	ListObservations(ctx context.Context) ([]models.Observation, error)
	CountObservations(ctx context.Context) (int, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// indicatorRepository implements IndicatorRepository
type indicatorRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewIndicatorRepository creates a new indicator repository
func NewIndicatorRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) IndicatorRepository {
	return &indicatorRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Migrate applies the embedded schema scripts in the given direction
func (r *indicatorRepository) Migrate(ctx context.Context, direction migrations.Direction) error {
	scripts, err := migrations.Scripts(direction)
	if err != nil {
		return err
	}

	for _, script := range scripts {
		for _, stmt := range migrations.Statements(script) {
			if _, err := r.db.ExecContext(ctx, "migrate_"+string(direction), stmt); err != nil {
				return fmt.Errorf("failed to apply migration: %w", err)
			}
		}
	}

	r.logger.Info(ctx, "[REPO_MIGRATE] Schema migration applied", logging.Fields{
		"direction": string(direction),
		"scripts":   len(scripts),
	})
	return nil
}

// UpsertObservationsBatch writes observations in a single transaction
func (r *indicatorRepository) UpsertObservationsBatch(ctx context.Context, observations []models.Observation, source string) error {
	if len(observations) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		r.metrics.IngestionBatchSize.Observe(float64(len(observations)))
		r.logger.Debug(ctx, "[REPO_BATCH_UPSERT] Batch upsert completed", logging.Fields{
			"count":       len(observations),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, tx.Rebind(`
		INSERT INTO indicator_observations (indicator, year, value, source, loaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (indicator, year) DO UPDATE SET
			value = EXCLUDED.value,
			source = EXCLUDED.source,
			loaded_at = EXCLUDED.loaded_at
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	loadedAt := time.Now().UTC()
	for _, obs := range observations {
		if _, err := stmt.ExecContext(ctx, obs.Indicator, obs.Year, obs.Value, source, loadedAt); err != nil {
			r.metrics.RecordDBError("upsert_error")
			return fmt.Errorf("failed to upsert observation %s/%d: %w", obs.Indicator, obs.Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListObservations returns every stored observation ordered by indicator and year
func (r *indicatorRepository) ListObservations(ctx context.Context) ([]models.Observation, error) {
	query := `
		SELECT indicator, year, value
		FROM indicator_observations
		ORDER BY indicator, year
	`

	var observations []models.Observation
	if err := r.db.SelectContext(ctx, "list_observations", &observations, query); err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}

	return observations, nil
}

// CountObservations returns the number of stored observations
func (r *indicatorRepository) CountObservations(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, "count_observations", &count, `SELECT COUNT(*) FROM indicator_observations`); err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}
	return count, nil
}

// HealthCheck performs a repository health check
func (r *indicatorRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
