package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"climate-dashboard/internal/models"
	"climate-dashboard/internal/render"
	"climate-dashboard/internal/services"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

// HealthChecker is implemented by backing stores that can be probed
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DashboardHandler handles the dashboard API endpoints
type DashboardHandler struct {
	service *services.DashboardService
	store   HealthChecker
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDashboardHandler creates a new dashboard handler. store may be nil when
// the dataset was read from a file.
func NewDashboardHandler(
	service *services.DashboardService,
	store HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		store:   store,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// IndicatorsResponse is returned by GET /api/indicators
type IndicatorsResponse struct {
	Indicators []string `json:"indicators"`
	Count      int      `json:"count"`
}

// YearsResponse is returned by GET /api/years
type YearsResponse struct {
	models.YearBounds
	DefaultFrom int `json:"default_from"`
	DefaultTo   int `json:"default_to"`
}

// ObservationsResponse is returned by GET /api/observations
type ObservationsResponse struct {
	Query models.Query         `json:"query"`
	Data  []models.Observation `json:"data"`
	Count int                  `json:"count"`
}

// SummaryResponse is returned by GET /api/summary
type SummaryResponse struct {
	Query     models.Query               `json:"query"`
	Summary   models.Summary             `json:"summary"`
	Formatted *services.FormattedSummary `json:"formatted"`
}

// GetIndicators handles GET /api/indicators
func (h *DashboardHandler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	indicators := h.service.Indicators(r.Context())
	h.sendJSON(w, IndicatorsResponse{Indicators: indicators, Count: len(indicators)}, http.StatusOK)
}

// GetYears handles GET /api/years
func (h *DashboardHandler) GetYears(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bounds, err := h.service.YearBounds(ctx)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	from, to, err := h.service.DefaultRange(ctx)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.sendJSON(w, YearsResponse{YearBounds: bounds, DefaultFrom: from, DefaultTo: to}, http.StatusOK)
}

// GetObservations handles GET /api/observations?indicator=&year_from=&year_to=
func (h *DashboardHandler) GetObservations(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	q, rows, err := h.service.Observations(r.Context(), sel)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.sendJSON(w, ObservationsResponse{Query: q, Data: rows, Count: len(rows)}, http.StatusOK)
}

// GetSummary handles GET /api/summary?indicator=&year_from=&year_to=
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	q, _, summary, err := h.service.Summary(r.Context(), sel)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.sendJSON(w, SummaryResponse{
		Query:     q,
		Summary:   summary,
		Formatted: services.FormatSummary(summary),
	}, http.StatusOK)
}

// GetDashboard handles GET /api/dashboard. Every parameter is optional and an
// empty selection is answered with 200 and a notice.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	view, err := h.service.Dashboard(r.Context(), sel)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.sendJSON(w, view, http.StatusOK)
}

// GetChart handles GET /api/chart.png
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	q, rows, err := h.service.Observations(r.Context(), sel)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	title := fmt.Sprintf("%s (%d-%d)", q.Indicator, q.YearFrom, q.YearTo)
	if err := render.TrendChart(&buf, title, rows); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// GetExport handles GET /api/export.xlsx
func (h *DashboardHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	q, rows, summary, err := h.service.Summary(r.Context(), sel)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := render.WriteWorkbook(&buf, q.Indicator, rows, summary); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(q)))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// HealthCheck handles GET /health
func (h *DashboardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"source":    h.service.Source(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.store != nil {
		if err := h.store.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK] Backing store unhealthy", logging.Fields{
				"error": err.Error(),
			})
			status["status"] = "degraded"
			h.sendJSON(w, status, http.StatusServiceUnavailable)
			return
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// parseSelection reads indicator, year_from and year_to from the query string
func parseSelection(r *http.Request) (services.Selection, error) {
	values := r.URL.Query()
	sel := services.Selection{Indicator: strings.TrimSpace(values.Get("indicator"))}

	for _, param := range []struct {
		name string
		dst  **int
	}{
		{"year_from", &sel.YearFrom},
		{"year_to", &sel.YearTo},
	} {
		raw := strings.TrimSpace(values.Get(param.name))
		if raw == "" {
			continue
		}
		year, err := strconv.Atoi(raw)
		if err != nil {
			return sel, &models.ValidationError{
				Field:   param.name,
				Value:   raw,
				Message: fmt.Sprintf("invalid %s, expected an integer year", param.name),
			}
		}
		*param.dst = &year
	}
	return sel, nil
}

func exportFilename(q models.Query) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, q.Indicator)
	return fmt.Sprintf("%s_%d_%d.xlsx", name, q.YearFrom, q.YearTo)
}

// handleServiceError maps typed errors onto HTTP status codes
func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	endpoint := routeTemplate(r)

	var (
		vErr     *models.ValidationError
		emptyErr *models.EmptyResultError
		dataErr  *models.EmptyDatasetError
	)
	switch {
	case errors.As(err, &vErr):
		h.metrics.RecordAPIError("validation_error", endpoint)
		h.sendError(w, vErr.Message, http.StatusBadRequest)
	case errors.As(err, &emptyErr):
		h.metrics.RecordAPIError("empty_result", endpoint)
		h.sendError(w, "no data for selected range", http.StatusNotFound)
	case errors.As(err, &dataErr):
		h.metrics.RecordAPIError("empty_dataset", endpoint)
		h.sendError(w, dataErr.Error(), http.StatusServiceUnavailable)
	default:
		h.logger.Error(ctx, "[API_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint,
			"query":    r.URL.RawQuery,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, "failed to process request", http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response
func (h *DashboardHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *DashboardHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all dashboard API routes
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/indicators", h.GetIndicators).Methods("GET")
	router.HandleFunc("/api/years", h.GetYears).Methods("GET")
	router.HandleFunc("/api/observations", h.GetObservations).Methods("GET")
	router.HandleFunc("/api/summary", h.GetSummary).Methods("GET")
	router.HandleFunc("/api/dashboard", h.GetDashboard).Methods("GET")
	router.HandleFunc("/api/chart.png", h.GetChart).Methods("GET")
	router.HandleFunc("/api/export.xlsx", h.GetExport).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
