package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"climate-dashboard/internal/config"
	"climate-dashboard/internal/services"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

type cliOptions struct {
	cfgFile string
	csvPath string
	source  string
	verbose bool
}

// session is one loaded dataset for the lifetime of a command
type session struct {
	ctx       context.Context
	dashboard *services.DashboardService
	close     func()
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "climate",
		Short:         "Query national climate indicator time series",
		Long:          `climate loads a wide or long indicator CSV (or the seeded database) and answers catalog, range and summary queries in the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.cfgFile, "config", "", "config file (default is ./climate.yaml if present)")
	f.StringVar(&opts.csvPath, "csv", "", "CSV file to load (overrides data.path and implies --source csv)")
	f.StringVar(&opts.source, "source", "", "data source: csv or database (overrides data.source)")
	f.BoolVar(&opts.verbose, "verbose", false, "write debug logs to stderr")

	root.AddCommand(
		newIndicatorsCmd(opts),
		newYearsCmd(opts),
		newQueryCmd(opts),
		newSummaryCmd(opts),
		newExportCmd(opts),
	)
	return root
}

// openSession loads configuration and the dataset for cmd
func openSession(cmd *cobra.Command, opts *cliOptions) (*session, error) {
	cfg, err := config.LoadConfig(opts.cfgFile)
	if err != nil {
		return nil, err
	}
	if opts.source != "" {
		cfg.Data.Source = opts.source
	}
	if opts.csvPath != "" {
		cfg.Data.Source = config.SourceCSV
		cfg.Data.Path = opts.csvPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := logging.WarnLevel
	if opts.verbose {
		level = logging.DebugLevel
	}
	logger := logging.NewStructuredLogger("climate-cli", "1.0.0", level)
	logger.SetOutput(cmd.ErrOrStderr())

	collector := metrics.NewCollectorWithRegistry("climate_cli", prometheus.NewRegistry())

	ctx := logging.WithSessionID(cmd.Context(), uuid.NewString())
	set, db, err := services.OpenDataset(ctx, cfg, logger, collector)
	if err != nil {
		return nil, err
	}

	s := &session{
		ctx:       ctx,
		dashboard: services.NewDashboardService(set, cfg.Dashboard.DefaultYearFrom, cfg.Dashboard.DefaultYearTo, logger, collector),
		close:     func() {},
	}
	if db != nil {
		s.close = func() { db.Close() }
	}
	return s, nil
}
