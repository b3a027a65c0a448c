package services

import (
	"context"
	"fmt"

	"climate-dashboard/internal/config"
	"climate-dashboard/internal/loader"
	"climate-dashboard/internal/models"
	"climate-dashboard/internal/repository"
	"climate-dashboard/pkg/database"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

// DatabaseConfig converts the config section into the database layer's settings
func DatabaseConfig(c config.DatabaseConfig) *database.Config {
	return &database.Config{
		Driver:          c.Driver,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Database,
		SSLMode:         c.SSLMode,
		Path:            c.Path,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
	}
}

// OpenDataset loads the configured data source once. When the source is the
// database the open connection is returned too; the caller closes it.
func OpenDataset(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*models.ObservationSet, *database.DB, error) {
	normalizer := loader.NewNormalizer(logger, metricsCollector)

	switch cfg.Data.Source {
	case config.SourceCSV:
		set, err := normalizer.Load(ctx, loader.FileSource{Path: cfg.Data.Path})
		return set, nil, err

	case config.SourceDatabase:
		db, err := database.Open(DatabaseConfig(cfg.Database), logger, metricsCollector)
		if err != nil {
			return nil, nil, &models.LoadError{Kind: models.SourceNotFound, Source: cfg.Database.Driver, Err: err}
		}
		repo := repository.NewIndicatorRepository(db, logger, metricsCollector)
		set, err := normalizer.Load(ctx, loader.RepositorySource{Label: cfg.Database.Driver + ":indicator_observations", Lister: repo})
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return set, db, nil

	default:
		return nil, nil, fmt.Errorf("unsupported data source %q", cfg.Data.Source)
	}
}
