// Package query answers catalog, bounds, range-filter and summary questions
// over an immutable observation set.
package query

import (
	"sort"

	"github.com/shopspring/decimal"

	"climate-dashboard/internal/models"
)

// Engine is a read-only view over one loaded dataset. It is safe for
// concurrent use because nothing in it changes after NewEngine returns.
type Engine struct {
	set        *models.ObservationSet
	indicators []string
	bounds     models.YearBounds
	hasBounds  bool
}

// NewEngine builds the indicator catalog and year bounds once for set.
func NewEngine(set *models.ObservationSet) *Engine {
	e := &Engine{set: set}

	seen := make(map[string]struct{})
	for i := 0; i < set.Len(); i++ {
		obs := set.At(i)
		if _, ok := seen[obs.Indicator]; !ok {
			seen[obs.Indicator] = struct{}{}
			e.indicators = append(e.indicators, obs.Indicator)
		}

		if !e.hasBounds {
			e.bounds = models.YearBounds{MinYear: obs.Year, MaxYear: obs.Year}
			e.hasBounds = true
			continue
		}
		if obs.Year < e.bounds.MinYear {
			e.bounds.MinYear = obs.Year
		}
		if obs.Year > e.bounds.MaxYear {
			e.bounds.MaxYear = obs.Year
		}
	}
	sort.Strings(e.indicators)

	return e
}

// Len returns the number of observations behind the engine.
func (e *Engine) Len() int {
	return e.set.Len()
}

// ListIndicators returns the distinct indicators in lexicographic order.
func (e *Engine) ListIndicators() []string {
	out := make([]string, len(e.indicators))
	copy(out, e.indicators)
	return out
}

// HasIndicator reports whether indicator is in the catalog.
func (e *Engine) HasIndicator(indicator string) bool {
	i := sort.SearchStrings(e.indicators, indicator)
	return i < len(e.indicators) && e.indicators[i] == indicator
}

// YearBounds returns the global minimum and maximum year.
func (e *Engine) YearBounds() (int, int, error) {
	if !e.hasBounds {
		return 0, 0, &models.EmptyDatasetError{}
	}
	return e.bounds.MinYear, e.bounds.MaxYear, nil
}

// DefaultRange clamps a preferred [from, to] into the dataset's year bounds.
// When the preferred range lies entirely outside the data the full bounds are used.
func (e *Engine) DefaultRange(from, to int) (int, int, error) {
	minYear, maxYear, err := e.YearBounds()
	if err != nil {
		return 0, 0, err
	}
	if from > to {
		from, to = to, from
	}

	lo := max(from, minYear)
	hi := min(to, maxYear)
	if lo > hi {
		return minYear, maxYear, nil
	}
	return lo, hi, nil
}

// Filter returns observations of indicator with yearFrom <= year <= yearTo,
// ascending by year. Observations sharing a year keep their load order.
// No match yields an empty, non-nil slice.
func (e *Engine) Filter(indicator string, yearFrom, yearTo int) []models.Observation {
	out := make([]models.Observation, 0)
	for i := 0; i < e.set.Len(); i++ {
		obs := e.set.At(i)
		if obs.Indicator == indicator && obs.Year >= yearFrom && obs.Year <= yearTo {
			out = append(out, obs)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Year < out[j].Year
	})
	return out
}

// Run validates q, filters, and summarizes in one call. The filtered rows are
// returned even when summarizing fails with *models.EmptyResultError.
func (e *Engine) Run(q models.Query) ([]models.Observation, models.Summary, error) {
	if err := q.Validate(); err != nil {
		return nil, models.Summary{}, err
	}

	rows := e.Filter(q.Indicator, q.YearFrom, q.YearTo)
	summary, err := Summarize(rows)
	if err != nil {
		return rows, models.Summary{}, &models.EmptyResultError{Query: &q}
	}
	return rows, summary, nil
}

// Summarize computes latest, maximum and average over a filtered sequence.
//
// The latest value belongs to the greatest year; if several observations share
// it, the first one wins. The average is rounded half away from zero to two
// decimal places.
func Summarize(result []models.Observation) (models.Summary, error) {
	if len(result) == 0 {
		return models.Summary{}, &models.EmptyResultError{}
	}

	latest := result[0]
	maxValue := result[0].Value
	sum := decimal.Zero
	for _, obs := range result {
		if obs.Year > latest.Year {
			latest = obs
		}
		if obs.Value > maxValue {
			maxValue = obs.Value
		}
		sum = sum.Add(decimal.NewFromFloat(obs.Value))
	}

	avg, _ := sum.Div(decimal.NewFromInt(int64(len(result)))).Round(2).Float64()

	return models.Summary{
		LatestYear:   latest.Year,
		LatestValue:  latest.Value,
		MaxValue:     maxValue,
		AverageValue: avg,
		Count:        len(result),
	}, nil
}
