package services

import (
	"context"
	"errors"
	"fmt"

	"climate-dashboard/internal/models"
	"climate-dashboard/internal/query"
	"climate-dashboard/internal/render"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

// NoDataNotice is shown in place of statistics when a selection is empty.
const NoDataNotice = "No data for selected range."

// DashboardService answers dashboard queries over one dataset loaded at startup
type DashboardService struct {
	engine      *query.Engine
	source      string
	defaultFrom int
	defaultTo   int
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// Selection is a partially filled query as it arrives from a client.
// Nil years fall back to the default range.
type Selection struct {
	Indicator string
	YearFrom  *int
	YearTo    *int
}

// FormattedSummary carries the display strings for a Summary
type FormattedSummary struct {
	LatestValue  string `json:"latest_value"`
	MaxValue     string `json:"max_value"`
	AverageValue string `json:"average_value"`
}

// DashboardView is everything a client needs to draw one dashboard state
type DashboardView struct {
	Indicators   []string             `json:"indicators"`
	Bounds       models.YearBounds    `json:"bounds"`
	Query        models.Query         `json:"query"`
	Observations []models.Observation `json:"observations"`
	Summary      *models.Summary      `json:"summary,omitempty"`
	Formatted    *FormattedSummary    `json:"formatted,omitempty"`
	Notice       string               `json:"notice,omitempty"`
}

// NewDashboardService wraps set in a query engine. defaultFrom and defaultTo
// seed the year range when a client does not send one.
func NewDashboardService(set *models.ObservationSet, defaultFrom, defaultTo int, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DashboardService {
	s := &DashboardService{
		engine:      query.NewEngine(set),
		source:      set.Source(),
		defaultFrom: defaultFrom,
		defaultTo:   defaultTo,
		logger:      logger,
		metrics:     metricsCollector,
	}
	metricsCollector.UpdateDataset(len(s.engine.ListIndicators()), s.engine.Len())
	return s
}

// Source names where the dataset was loaded from
func (s *DashboardService) Source() string {
	return s.source
}

// Indicators returns the sorted indicator catalog
func (s *DashboardService) Indicators(ctx context.Context) []string {
	defer s.metrics.NewTimer(s.metrics.QueryDuration.WithLabelValues("list_indicators")).ObserveDuration()
	return s.engine.ListIndicators()
}

// YearBounds returns the dataset's global year span
func (s *DashboardService) YearBounds(ctx context.Context) (models.YearBounds, error) {
	defer s.metrics.NewTimer(s.metrics.QueryDuration.WithLabelValues("year_bounds")).ObserveDuration()

	minYear, maxYear, err := s.engine.YearBounds()
	if err != nil {
		return models.YearBounds{}, err
	}
	return models.YearBounds{MinYear: minYear, MaxYear: maxYear}, nil
}

// DefaultRange returns the configured default range clamped into the bounds
func (s *DashboardService) DefaultRange(ctx context.Context) (int, int, error) {
	return s.engine.DefaultRange(s.defaultFrom, s.defaultTo)
}

// Resolve turns a selection into a validated query. The indicator must be in
// the catalog. With no years the default range applies; a single missing
// year is taken from the dataset bounds.
func (s *DashboardService) Resolve(ctx context.Context, sel Selection) (models.Query, error) {
	q := models.Query{Indicator: sel.Indicator}
	if sel.Indicator != "" && !s.engine.HasIndicator(sel.Indicator) {
		return q, &models.ValidationError{
			Field:   "indicator",
			Value:   sel.Indicator,
			Message: fmt.Sprintf("unknown indicator %q", sel.Indicator),
		}
	}

	switch {
	case sel.YearFrom == nil && sel.YearTo == nil:
		from, to, err := s.DefaultRange(ctx)
		if err != nil {
			return q, err
		}
		q.YearFrom, q.YearTo = from, to
	case sel.YearFrom == nil || sel.YearTo == nil:
		// a one-sided selection is open-ended towards the dataset edge
		bounds, err := s.YearBounds(ctx)
		if err != nil {
			return q, err
		}
		q.YearFrom, q.YearTo = bounds.MinYear, bounds.MaxYear
	}
	if sel.YearFrom != nil {
		q.YearFrom = *sel.YearFrom
	}
	if sel.YearTo != nil {
		q.YearTo = *sel.YearTo
	}

	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, nil
}

// Observations returns the filtered, year-ordered observations for sel.
// An empty result is reported as *models.EmptyResultError.
func (s *DashboardService) Observations(ctx context.Context, sel Selection) (models.Query, []models.Observation, error) {
	q, err := s.Resolve(ctx, sel)
	if err != nil {
		return q, nil, err
	}

	timer := s.metrics.NewTimer(s.metrics.QueryDuration.WithLabelValues("filter"))
	rows := s.engine.Filter(q.Indicator, q.YearFrom, q.YearTo)
	timer.ObserveDuration()

	if len(rows) == 0 {
		s.recordEmpty(ctx, q)
		return q, rows, &models.EmptyResultError{Query: &q}
	}
	return q, rows, nil
}

// Summary runs sel and returns the filtered rows with their aggregates
func (s *DashboardService) Summary(ctx context.Context, sel Selection) (models.Query, []models.Observation, models.Summary, error) {
	q, err := s.Resolve(ctx, sel)
	if err != nil {
		return q, nil, models.Summary{}, err
	}

	timer := s.metrics.NewTimer(s.metrics.QueryDuration.WithLabelValues("summarize"))
	rows, summary, err := s.engine.Run(q)
	duration := timer.ObserveDuration()

	var emptyErr *models.EmptyResultError
	if errors.As(err, &emptyErr) {
		s.recordEmpty(ctx, q)
	}
	if err != nil {
		return q, rows, models.Summary{}, err
	}

	s.logger.Debug(ctx, "[QUERY_SUMMARY] Summary computed", logging.Fields{
		"indicator":   q.Indicator,
		"year_from":   q.YearFrom,
		"year_to":     q.YearTo,
		"count":       summary.Count,
		"duration_us": duration.Microseconds(),
	})
	return q, rows, summary, nil
}

// Dashboard builds the full view for sel. An empty indicator selects the first
// catalog entry. An empty selection is not an error: the view carries a notice
// instead of a summary.
func (s *DashboardService) Dashboard(ctx context.Context, sel Selection) (*DashboardView, error) {
	indicators := s.Indicators(ctx)
	bounds, err := s.YearBounds(ctx)
	if err != nil {
		return nil, err
	}
	if sel.Indicator == "" && len(indicators) > 0 {
		sel.Indicator = indicators[0]
	}

	q, rows, summary, err := s.Summary(ctx, sel)
	view := &DashboardView{
		Indicators:   indicators,
		Bounds:       bounds,
		Query:        q,
		Observations: rows,
	}

	var emptyErr *models.EmptyResultError
	switch {
	case errors.As(err, &emptyErr):
		view.Observations = []models.Observation{}
		view.Notice = NoDataNotice
		return view, nil
	case err != nil:
		return nil, err
	}

	view.Summary = &summary
	view.Formatted = FormatSummary(summary)
	return view, nil
}

// FormatSummary renders the three headline metrics for display
func FormatSummary(summary models.Summary) *FormattedSummary {
	return &FormattedSummary{
		LatestValue:  render.FormatValue(summary.LatestValue),
		MaxValue:     render.FormatValue(summary.MaxValue),
		AverageValue: render.FormatValue(summary.AverageValue),
	}
}

func (s *DashboardService) recordEmpty(ctx context.Context, q models.Query) {
	s.metrics.EmptyResultsTotal.Inc()
	s.logger.Info(ctx, "[QUERY_EMPTY] No data for selected range", logging.Fields{
		"indicator": q.Indicator,
		"year_from": q.YearFrom,
		"year_to":   q.YearTo,
	})
}
