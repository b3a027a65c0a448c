package loader

import (
	"context"
	"errors"
	"time"

	"climate-dashboard/internal/models"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

// Drop reasons reported in LoadReport.Dropped and the load_dropped_total metric.
const (
	DropMalformedRow = "malformed_row"
	DropMissingField = "missing_field"
	DropInvalidYear  = "invalid_year"
	DropInvalidValue = "invalid_value"
)

// LoadReport describes what a load kept and what it threw away
type LoadReport struct {
	Source         string         `json:"source"`
	Layout         string         `json:"layout"`
	RowsRead       int            `json:"rows_read"`
	Observations   int            `json:"observations"`
	Indicators     int            `json:"indicators"`
	Dropped        map[string]int `json:"dropped"`
	IgnoredColumns []string       `json:"ignored_columns,omitempty"`
	SkippedHXL     bool           `json:"skipped_hxl"`
	Duration       time.Duration  `json:"duration"`
}

// DroppedTotal sums every drop reason
func (r *LoadReport) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// Normalizer turns raw tables into canonical observation sets
type Normalizer struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewNormalizer creates a new normalizer
func NewNormalizer(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Normalizer {
	return &Normalizer{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Load reads src and returns its immutable observation set
func (n *Normalizer) Load(ctx context.Context, src Source) (*models.ObservationSet, error) {
	set, _, err := n.LoadWithReport(ctx, src)
	return set, err
}

// LoadWithReport is Load plus the drop accounting
func (n *Normalizer) LoadWithReport(ctx context.Context, src Source) (*models.ObservationSet, *LoadReport, error) {
	timer := n.metrics.NewTimer(n.metrics.LoadDuration)

	n.logger.Info(ctx, "[LOAD_START] Loading dataset", logging.Fields{
		"source": src.Name(),
		"stage":  "READ",
	})

	table, err := src.Table(ctx)
	if err != nil {
		n.recordFailure(ctx, src.Name(), err)
		return nil, nil, err
	}

	observations, report, err := Normalize(src.Name(), table)
	if err != nil {
		n.recordFailure(ctx, src.Name(), err)
		return nil, report, err
	}
	report.Duration = timer.ObserveDuration()

	for reason, count := range report.Dropped {
		n.metrics.RecordDropped(reason, count)
	}
	n.metrics.LoadObservationsTotal.Add(float64(report.Observations))

	n.logger.Info(ctx, "[LOAD_COMPLETE] Dataset loaded", logging.Fields{
		"source":          report.Source,
		"layout":          report.Layout,
		"rows_read":       report.RowsRead,
		"observations":    report.Observations,
		"indicators":      report.Indicators,
		"dropped":         report.Dropped,
		"ignored_columns": report.IgnoredColumns,
		"duration_ms":     report.Duration.Milliseconds(),
		"stage":           "COMPLETE",
	})

	return models.NewObservationSet(src.Name(), observations), report, nil
}

func (n *Normalizer) recordFailure(ctx context.Context, source string, err error) {
	kind := "unknown"
	var lErr *models.LoadError
	if errors.As(err, &lErr) {
		kind = lErr.Kind.String()
	}
	n.metrics.RecordLoadError(kind)
	n.logger.Error(ctx, "[LOAD_ERROR] Dataset load failed", logging.Fields{
		"source": source,
		"kind":   kind,
	}, err)
}

// Normalize detects the layout of table and converts it into observations.
// Rows and cells that fail coercion are dropped and counted, never substituted.
func Normalize(source string, table *RawTable) ([]models.Observation, *LoadReport, error) {
	report := &LoadReport{
		Source:  source,
		Layout:  LayoutUnknown.String(),
		Dropped: make(map[string]int),
	}
	if table == nil {
		return nil, report, &models.LoadError{Kind: models.UnrecognizedLayout, Source: source}
	}

	report.RowsRead = len(table.Rows)
	report.SkippedHXL = table.SkippedHXL
	if table.Malformed > 0 {
		report.Dropped[DropMalformedRow] = table.Malformed
	}

	plan, err := DetectLayout(table.Header)
	if err != nil {
		return nil, report, &models.LoadError{Kind: models.UnrecognizedLayout, Source: source, Err: err}
	}
	report.Layout = plan.Layout.String()
	report.IgnoredColumns = plan.IgnoredColumns

	var observations []models.Observation
	switch plan.Layout {
	case LayoutLong:
		observations = normalizeLong(table, plan, report)
	case LayoutWide:
		observations = normalizeWide(table, plan, report)
	}

	for reason, count := range report.Dropped {
		if count == 0 {
			delete(report.Dropped, reason)
		}
	}

	report.Observations = len(observations)
	if len(observations) == 0 {
		return nil, report, &models.LoadError{Kind: models.EmptyResult, Source: source}
	}

	indicators := make(map[string]struct{})
	for _, obs := range observations {
		indicators[obs.Indicator] = struct{}{}
	}
	report.Indicators = len(indicators)

	return observations, report, nil
}

func normalizeLong(table *RawTable, plan LayoutPlan, report *LoadReport) []models.Observation {
	observations := make([]models.Observation, 0, len(table.Rows))
	for _, row := range table.Rows {
		indicator := cell(row, plan.IndicatorCol)
		yearText := cell(row, plan.YearCol)
		valueText := cell(row, plan.ValueCol)

		if indicator == "" || yearText == "" || valueText == "" {
			report.Dropped[DropMissingField]++
			continue
		}
		year, ok := parseYear(yearText)
		if !ok {
			report.Dropped[DropInvalidYear]++
			continue
		}
		value, ok := parseValue(valueText)
		if !ok {
			report.Dropped[DropInvalidValue]++
			continue
		}

		observations = append(observations, models.Observation{Indicator: indicator, Year: year, Value: value})
	}
	return observations
}

// normalizeWide unpivots each year column into its own observation.
// An empty indicator drops the whole row; a bad cell drops only that cell.
func normalizeWide(table *RawTable, plan LayoutPlan, report *LoadReport) []models.Observation {
	observations := make([]models.Observation, 0, len(table.Rows)*len(plan.YearColumns))
	for _, row := range table.Rows {
		indicator := cell(row, plan.IndicatorCol)
		if indicator == "" {
			report.Dropped[DropMissingField]++
			continue
		}

		for _, yc := range plan.YearColumns {
			valueText := cell(row, yc.Index)
			if valueText == "" {
				report.Dropped[DropMissingField]++
				continue
			}
			value, ok := parseValue(valueText)
			if !ok {
				report.Dropped[DropInvalidValue]++
				continue
			}
			observations = append(observations, models.Observation{Indicator: indicator, Year: yc.Year, Value: value})
		}
	}
	return observations
}
