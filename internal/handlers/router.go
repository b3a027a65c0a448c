package handlers

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

// NewRouter wires the dashboard routes, API docs and the metrics endpoint
// behind the request ID and instrumentation middleware.
func NewRouter(h *DashboardHandler, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestID, Instrument(logger, metricsCollector))

	h.RegisterRoutes(router)

	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	return router
}
