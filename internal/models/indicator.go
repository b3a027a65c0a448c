package models

import (
	"fmt"
	"strings"
)

// Observation is a single (indicator, year, value) fact.
// Values are never mutated once an ObservationSet has been built.
type Observation struct {
	Indicator string  `json:"indicator" db:"indicator"`
	Year      int     `json:"year" db:"year"`
	Value     float64 `json:"value" db:"value"`
}

// ObservationSet is the immutable relation a dashboard session works against.
// It exposes no mutation API; accessors hand out copies.
type ObservationSet struct {
	observations []Observation
	source       string
}

// NewObservationSet copies obs into a new set. The caller keeps ownership of obs.
func NewObservationSet(source string, obs []Observation) *ObservationSet {
	cp := make([]Observation, len(obs))
	copy(cp, obs)
	return &ObservationSet{observations: cp, source: source}
}

// Len returns the number of observations.
func (s *ObservationSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.observations)
}

// At returns the i-th observation in load order.
func (s *ObservationSet) At(i int) Observation {
	return s.observations[i]
}

// Observations returns a copy of all observations in load order.
func (s *ObservationSet) Observations() []Observation {
	if s == nil {
		return nil
	}
	cp := make([]Observation, len(s.observations))
	copy(cp, s.observations)
	return cp
}

// Source names where the set was loaded from.
func (s *ObservationSet) Source() string {
	if s == nil {
		return ""
	}
	return s.source
}

// Query selects one indicator over an inclusive year range.
type Query struct {
	Indicator string `json:"indicator"`
	YearFrom  int    `json:"year_from"`
	YearTo    int    `json:"year_to"`
}

// Validate checks the query invariants: a non-empty indicator and YearFrom <= YearTo.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Indicator) == "" {
		return &ValidationError{
			Field:   "indicator",
			Value:   q.Indicator,
			Message: "indicator is required",
		}
	}
	if q.YearFrom > q.YearTo {
		return &ValidationError{
			Field:   "year_range",
			Value:   fmt.Sprintf("%d-%d", q.YearFrom, q.YearTo),
			Message: "year_from must not be greater than year_to",
		}
	}
	return nil
}

// String renders the query for log lines and error messages.
func (q Query) String() string {
	return fmt.Sprintf("%s [%d-%d]", q.Indicator, q.YearFrom, q.YearTo)
}

// Summary holds the aggregates shown next to the trend chart.
type Summary struct {
	LatestYear   int     `json:"latest_year"`
	LatestValue  float64 `json:"latest_value"`
	MaxValue     float64 `json:"max_value"`
	AverageValue float64 `json:"average_value"`
	Count        int     `json:"count"`
}

// YearBounds is the global year span of a dataset.
type YearBounds struct {
	MinYear int `json:"min_year"`
	MaxYear int `json:"max_year"`
}

// Contains reports whether year lies inside the bounds.
func (b YearBounds) Contains(year int) bool {
	return year >= b.MinYear && year <= b.MaxYear
}
