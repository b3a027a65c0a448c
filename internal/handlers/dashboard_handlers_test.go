package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"climate-dashboard/internal/models"
	"climate-dashboard/internal/services"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

type stubStore struct{ err error }

func (s stubStore) HealthCheck(context.Context) error { return s.err }

func newTestRouter(t *testing.T, store HealthChecker) (*mux.Router, *metrics.Collector) {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry("handler_test", reg)
	logger := logging.NewNopLogger()

	set := models.NewObservationSet("climate.csv", []models.Observation{
		{Indicator: "Forest area (% of land area)", Year: 2000, Value: 34.6},
		{Indicator: "Forest area (% of land area)", Year: 2001, Value: 33.9},
		{Indicator: "Forest area (% of land area)", Year: 2002, Value: 33.1},
		{Indicator: "CO2 emissions (kt)", Year: 1990, Value: 3850},
		{Indicator: "CO2 emissions (kt)", Year: 2020, Value: 21678.26},
	})
	svc := services.NewDashboardService(set, 1990, 2020, logger, collector)
	h := NewDashboardHandler(svc, store, logger, collector)
	return NewRouter(h, logger, collector, reg), collector
}

func doGet(t *testing.T, router http.Handler, path string, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	target := path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestGetIndicators(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doGet(t, router, "/api/indicators", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp IndicatorsResponse
	decode(t, rec, &resp)
	assert.Equal(t, []string{"CO2 emissions (kt)", "Forest area (% of land area)"}, resp.Indicators)
	assert.Equal(t, 2, resp.Count)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestGetYears(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doGet(t, router, "/api/years", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp YearsResponse
	decode(t, rec, &resp)
	assert.Equal(t, 1990, resp.MinYear)
	assert.Equal(t, 2020, resp.MaxYear)
	assert.Equal(t, 1990, resp.DefaultFrom)
	assert.Equal(t, 2020, resp.DefaultTo)
}

func TestGetObservations(t *testing.T) {
	router, collector := newTestRouter(t, nil)

	tests := []struct {
		name       string
		params     url.Values
		wantStatus int
		wantCount  int
	}{
		{
			name:       "full range",
			params:     url.Values{"indicator": {"Forest area (% of land area)"}, "year_from": {"1990"}, "year_to": {"2020"}},
			wantStatus: http.StatusOK,
			wantCount:  3,
		},
		{
			name:       "default range",
			params:     url.Values{"indicator": {"Forest area (% of land area)"}},
			wantStatus: http.StatusOK,
			wantCount:  3,
		},
		{
			name:       "empty range",
			params:     url.Values{"indicator": {"Forest area (% of land area)"}, "year_from": {"2050"}, "year_to": {"2060"}},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "inverted range",
			params:     url.Values{"indicator": {"Forest area (% of land area)"}, "year_from": {"2010"}, "year_to": {"2000"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown indicator",
			params:     url.Values{"indicator": {"Rainfall"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing indicator",
			params:     url.Values{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unparsable year",
			params:     url.Values{"indicator": {"Forest area (% of land area)"}, "year_from": {"abc"}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, router, "/api/observations", tt.params)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus != http.StatusOK {
				var errResp ErrorResponse
				decode(t, rec, &errResp)
				assert.Equal(t, tt.wantStatus, errResp.Code)
				return
			}

			var resp ObservationsResponse
			decode(t, rec, &resp)
			assert.Equal(t, tt.wantCount, resp.Count)
			for i := 1; i < len(resp.Data); i++ {
				assert.LessOrEqual(t, resp.Data[i-1].Year, resp.Data[i].Year)
			}
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.APIErrorsTotal.WithLabelValues("empty_result", "/api/observations")))
	assert.Equal(t, 4.0, testutil.ToFloat64(collector.APIErrorsTotal.WithLabelValues("validation_error", "/api/observations")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.APIRequestsTotal.WithLabelValues("/api/observations", "GET", "200")))
}

func TestGetSummary(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doGet(t, router, "/api/summary", url.Values{"indicator": {"CO2 emissions (kt)"}, "year_from": {"1990"}, "year_to": {"2020"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SummaryResponse
	decode(t, rec, &resp)
	assert.Equal(t, models.Summary{
		LatestYear:   2020,
		LatestValue:  21678.26,
		MaxValue:     21678.26,
		AverageValue: 12764.13,
		Count:        2,
	}, resp.Summary)
	require.NotNil(t, resp.Formatted)
	assert.Equal(t, "21,678.26", resp.Formatted.LatestValue)
	assert.Equal(t, "12,764.13", resp.Formatted.AverageValue)

	rec = doGet(t, router, "/api/summary", url.Values{"indicator": {"CO2 emissions (kt)"}, "year_from": {"2000"}, "year_to": {"2010"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no data for selected range")
}

func TestGetDashboard(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doGet(t, router, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view services.DashboardView
	decode(t, rec, &view)
	assert.Equal(t, "CO2 emissions (kt)", view.Query.Indicator)
	assert.Len(t, view.Observations, 2)
	assert.NotNil(t, view.Summary)
	assert.Empty(t, view.Notice)

	rec = doGet(t, router, "/api/dashboard", url.Values{"indicator": {"CO2 emissions (kt)"}, "year_from": {"2000"}, "year_to": {"2010"}})
	require.Equal(t, http.StatusOK, rec.Code)
	view = services.DashboardView{}
	decode(t, rec, &view)
	assert.Equal(t, services.NoDataNotice, view.Notice)
	assert.Nil(t, view.Summary)
	assert.Empty(t, view.Observations)
}

func TestGetChart(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doGet(t, router, "/api/chart.png", url.Values{"indicator": {"Forest area (% of land area)"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = doGet(t, router, "/api/chart.png", url.Values{"indicator": {"Forest area (% of land area)"}, "year_from": {"1960"}, "year_to": {"1970"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetExport(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doGet(t, router, "/api/export.xlsx", url.Values{"indicator": {"Forest area (% of land area)"}, "year_from": {"2000"}, "year_to": {"2001"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Forest_area____of_land_area__2000_2001.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Observations")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rec := doGet(t, router, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	router, _ = newTestRouter(t, stubStore{})
	rec = doGet(t, router, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	router, _ = newTestRouter(t, stubStore{err: errors.New("connection refused")})
	rec = doGet(t, router, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestRequestID(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	const id = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	req := httptest.NewRequest(http.MethodGet, "/api/indicators", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/api/indicators", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
}

func TestDocsAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doGet(t, router, "/api/docs/openapi.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	paths, ok := doc["paths"].(map[string]interface{})
	require.True(t, ok)
	for _, p := range []string{"/api/indicators", "/api/years", "/api/observations", "/api/summary", "/api/dashboard", "/api/chart.png", "/api/export.xlsx", "/health"} {
		assert.Contains(t, paths, p)
	}

	rec = doGet(t, router, "/api/docs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swagger-ui")

	doGet(t, router, "/api/indicators", nil)
	rec = doGet(t, router, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "handler_test_api_requests_total"))
}
