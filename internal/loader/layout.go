package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Layout is the detected shape of a raw table
type Layout int

const (
	LayoutUnknown Layout = iota
	// LayoutLong has one row per (indicator, year) observation.
	LayoutLong
	// LayoutWide has one row per indicator and one column per year.
	LayoutWide
)

// String returns the layout name used in logs and reports
func (l Layout) String() string {
	switch l {
	case LayoutLong:
		return "long"
	case LayoutWide:
		return "wide"
	default:
		return "unknown"
	}
}

// YearColumn maps a wide-layout column to the year in its label.
type YearColumn struct {
	Index int
	Year  int
}

// LayoutPlan says how to read observations out of a raw table.
type LayoutPlan struct {
	Layout Layout

	// Column indexes for LayoutLong. IndicatorCol is also used by LayoutWide.
	IndicatorCol int
	YearCol      int
	ValueCol     int

	// LayoutWide only.
	YearColumns    []YearColumn
	IgnoredColumns []string
}

var indicatorAliases = map[string]bool{
	"indicator name": true,
	"indicator":      true,
}

// DetectLayout decides between the long and wide layouts from the header alone.
//
// A header of exactly three columns naming an indicator column ("Indicator Name"
// or "Indicator"), "Year" and "Value" (case-insensitive, any order) is long.
// Anything else is read as wide: the first column identifies the indicator and
// every later column whose label is a year becomes a year column. A header with
// fewer than two columns, or with no year label after the first column, matches
// neither shape.
func DetectLayout(header []string) (LayoutPlan, error) {
	if plan, ok := detectLong(header); ok {
		return plan, nil
	}

	if len(header) < 2 {
		return LayoutPlan{}, fmt.Errorf("expected an indicator column plus year or Year/Value columns, got %d column(s)", len(header))
	}

	plan := LayoutPlan{Layout: LayoutWide, IndicatorCol: 0}
	for i := 1; i < len(header); i++ {
		year, ok := parseYear(header[i])
		if !ok {
			plan.IgnoredColumns = append(plan.IgnoredColumns, header[i])
			continue
		}
		plan.YearColumns = append(plan.YearColumns, YearColumn{Index: i, Year: year})
	}

	if len(plan.YearColumns) == 0 {
		return LayoutPlan{}, fmt.Errorf("no year columns found after %q and header is not Indicator/Year/Value: %v", header[0], header)
	}
	return plan, nil
}

func detectLong(header []string) (LayoutPlan, bool) {
	if len(header) != 3 {
		return LayoutPlan{}, false
	}

	plan := LayoutPlan{Layout: LayoutLong, IndicatorCol: -1, YearCol: -1, ValueCol: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case indicatorAliases[name] && plan.IndicatorCol < 0:
			plan.IndicatorCol = i
		case name == "year" && plan.YearCol < 0:
			plan.YearCol = i
		case name == "value" && plan.ValueCol < 0:
			plan.ValueCol = i
		default:
			return LayoutPlan{}, false
		}
	}
	return plan, true
}

// parseYear accepts integer labels and integral floats ("2000", "2000.0").
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// parseValue accepts finite floats only; NaN and infinities count as missing.
func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
