package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-dashboard/internal/models"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

func newTestNormalizer(t *testing.T) (*Normalizer, *metrics.Collector) {
	t.Helper()
	collector := metrics.NewCollectorWithRegistry("loader_test", prometheus.NewRegistry())
	return NewNormalizer(logging.NewNopLogger(), collector), collector
}

func loadString(t *testing.T, csv string) (*models.ObservationSet, *LoadReport, error) {
	t.Helper()
	n, _ := newTestNormalizer(t)
	return n.LoadWithReport(context.Background(), ReaderSource{Label: t.Name(), Reader: strings.NewReader(csv)})
}

func requireLoadKind(t *testing.T, err error, kind models.LoadErrorKind) {
	t.Helper()
	var lErr *models.LoadError
	require.True(t, errors.As(err, &lErr), "expected *models.LoadError, got %T: %v", err, err)
	assert.Equal(t, kind, lErr.Kind)
}

func TestLoad_WideRoundTrip(t *testing.T) {
	set, report, err := loadString(t, "Indicator,2000,2001\nA,1.5,2.5\nB,3,4\n")
	require.NoError(t, err)

	want := []models.Observation{
		{Indicator: "A", Year: 2000, Value: 1.5},
		{Indicator: "A", Year: 2001, Value: 2.5},
		{Indicator: "B", Year: 2000, Value: 3},
		{Indicator: "B", Year: 2001, Value: 4},
	}
	if diff := cmp.Diff(want, set.Observations()); diff != "" {
		t.Fatalf("observations mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "wide", report.Layout)
	assert.Equal(t, 2, report.Indicators)
	assert.Equal(t, 0, report.DroppedTotal())
}

func TestLoad_LongLayout(t *testing.T) {
	csv := "Year,Indicator Name,Value\n" +
		"1990,Forest area (% of land area),37.5\n" +
		"1991,Forest area (% of land area),37.1\n" +
		"1990,CO2 emissions (kt),3850.0\n"

	set, report, err := loadString(t, csv)
	require.NoError(t, err)
	assert.Equal(t, "long", report.Layout)
	assert.Equal(t, []models.Observation{
		{Indicator: "Forest area (% of land area)", Year: 1990, Value: 37.5},
		{Indicator: "Forest area (% of land area)", Year: 1991, Value: 37.1},
		{Indicator: "CO2 emissions (kt)", Year: 1990, Value: 3850},
	}, set.Observations())
}

func TestLoad_HXLRowSkipped(t *testing.T) {
	csv := "Indicator Name,Year,Value\n#indicator+name,#date+year,#indicator+value+num\nA,2000,1\n"
	set, report, err := loadString(t, csv)
	require.NoError(t, err)
	assert.True(t, report.SkippedHXL)
	assert.Equal(t, 1, set.Len())
	assert.Zero(t, report.DroppedTotal())
}

func TestLoad_DropPolicy(t *testing.T) {
	csv := "Indicator,Year,Value\n" +
		"A,2000,1.0\n" +
		"A,2001,n/a\n" + // non-numeric value
		"A,2002,NaN\n" + // NaN is not a value
		"A,20x3,4.0\n" + // bad year
		",2004,5.0\n" + // missing indicator
		"A,2005\n" + // short row
		"A,2006.0,6.0\n" // integral float year is fine

	set, report, err := loadString(t, csv)
	require.NoError(t, err)

	assert.Equal(t, []models.Observation{
		{Indicator: "A", Year: 2000, Value: 1},
		{Indicator: "A", Year: 2006, Value: 6},
	}, set.Observations())
	assert.Equal(t, map[string]int{
		DropInvalidValue: 2,
		DropInvalidYear:  1,
		DropMissingField: 2,
	}, report.Dropped)
	assert.Equal(t, 7, report.RowsRead)
}

func TestLoad_WideDropsCellsNotRows(t *testing.T) {
	csv := "Indicator Name,Indicator Code,1990,1991,1992\n" +
		"Forest area,AG.LND.FRST.ZS,37.5,,37.0\n" +
		",X,1,2,3\n" +
		"Urban population,SP.URB.TOTL,abc,18.4,18.5\n"

	set, report, err := loadString(t, csv)
	require.NoError(t, err)
	assert.Equal(t, []models.Observation{
		{Indicator: "Forest area", Year: 1990, Value: 37.5},
		{Indicator: "Forest area", Year: 1992, Value: 37.0},
		{Indicator: "Urban population", Year: 1991, Value: 18.4},
		{Indicator: "Urban population", Year: 1992, Value: 18.5},
	}, set.Observations())
	assert.Equal(t, []string{"Indicator Code"}, report.IgnoredColumns)
	assert.Equal(t, 2, report.Dropped[DropMissingField])
	assert.Equal(t, 1, report.Dropped[DropInvalidValue])
}

func TestLoad_Errors(t *testing.T) {
	t.Run("unrecognized layout", func(t *testing.T) {
		_, _, err := loadString(t, "Country Name,Country ISO3,Year,Indicator Name,Value\nSri Lanka,LKA,2000,A,1\n")
		requireLoadKind(t, err, models.UnrecognizedLayout)
	})

	t.Run("single column", func(t *testing.T) {
		_, _, err := loadString(t, "Indicator\nA\n")
		requireLoadKind(t, err, models.UnrecognizedLayout)
	})

	t.Run("empty input", func(t *testing.T) {
		_, _, err := loadString(t, "")
		requireLoadKind(t, err, models.UnrecognizedLayout)
	})

	t.Run("empty result", func(t *testing.T) {
		_, report, err := loadString(t, "Indicator,2000\nA,\nB,x\n")
		requireLoadKind(t, err, models.EmptyResult)
		require.NotNil(t, report)
		assert.Equal(t, 2, report.DroppedTotal())
	})

	t.Run("header only", func(t *testing.T) {
		_, _, err := loadString(t, "Indicator,Year,Value\n")
		requireLoadKind(t, err, models.EmptyResult)
	})

	t.Run("source not found", func(t *testing.T) {
		n, collector := newTestNormalizer(t)
		_, err := n.Load(context.Background(), FileSource{Path: filepath.Join(t.TempDir(), "missing.csv")})
		requireLoadKind(t, err, models.SourceNotFound)
		assert.True(t, errors.Is(err, os.ErrNotExist))
		assert.Equal(t, 1.0, testutil.ToFloat64(collector.LoadErrorsTotal.WithLabelValues("source_not_found")))
	})

	t.Run("nil reader", func(t *testing.T) {
		n, _ := newTestNormalizer(t)
		_, err := n.Load(context.Background(), ReaderSource{})
		requireLoadKind(t, err, models.SourceNotFound)
	})
}

func TestLoad_FileSourceWithBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "climate.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffIndicator Name,Year,Value\r\nA,2000,1\r\n"), 0o644))

	n, collector := newTestNormalizer(t)
	set, err := n.Load(context.Background(), FileSource{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, path, set.Source())
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.LoadObservationsTotal))
}

type stubLister struct {
	obs []models.Observation
	err error
}

func (s stubLister) ListObservations(context.Context) ([]models.Observation, error) {
	return s.obs, s.err
}

func TestLoad_RepositorySource(t *testing.T) {
	n, _ := newTestNormalizer(t)

	stored := []models.Observation{
		{Indicator: "A", Year: 2000, Value: 0.1},
		{Indicator: "A", Year: 2001, Value: 1e-7},
		{Indicator: "B", Year: 2000, Value: -42.25},
	}
	set, err := n.Load(context.Background(), RepositorySource{Lister: stubLister{obs: stored}})
	require.NoError(t, err)
	assert.Equal(t, stored, set.Observations(), "values survive the text round trip exactly")

	_, err = n.Load(context.Background(), RepositorySource{Lister: stubLister{err: errors.New("connection refused")}})
	requireLoadKind(t, err, models.SourceNotFound)

	_, err = n.Load(context.Background(), RepositorySource{Lister: stubLister{}})
	requireLoadKind(t, err, models.EmptyResult)
}

func TestLoad_ContextCanceled(t *testing.T) {
	n, _ := newTestNormalizer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := n.Load(ctx, ReaderSource{Reader: strings.NewReader("Indicator,2000\nA,1\n")})
	assert.ErrorIs(t, err, context.Canceled)
}
