package models

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

// TestQuery_Validate covers the query invariants
func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name      string
		query     Query
		wantErr   bool
		wantField string
	}{
		{
			name:    "valid range",
			query:   Query{Indicator: "Forest area (% of land area)", YearFrom: 1990, YearTo: 2020},
			wantErr: false,
		},
		{
			name:    "single year range",
			query:   Query{Indicator: "A", YearFrom: 2000, YearTo: 2000},
			wantErr: false,
		},
		{
			name:      "inverted range",
			query:     Query{Indicator: "A", YearFrom: 2001, YearTo: 2000},
			wantErr:   true,
			wantField: "year_range",
		},
		{
			name:      "blank indicator",
			query:     Query{Indicator: "  ", YearFrom: 2000, YearTo: 2001},
			wantErr:   true,
			wantField: "indicator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()

			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("Validate() error type = %T, want *ValidationError", err)
				}
				if vErr.Field != tt.wantField {
					t.Errorf("Field = %v, want %v", vErr.Field, tt.wantField)
				}
			}
		})
	}
}

// TestObservationSet_Immutable checks that neither the input slice nor the
// returned copies can change the set
func TestObservationSet_Immutable(t *testing.T) {
	input := []Observation{
		{Indicator: "A", Year: 2000, Value: 1},
		{Indicator: "B", Year: 2001, Value: 2},
	}
	set := NewObservationSet("mem", input)

	input[0].Value = 99
	if set.At(0).Value != 1 {
		t.Errorf("set changed after caller mutated input: got %v", set.At(0).Value)
	}

	out := set.Observations()
	out[1].Indicator = "Z"
	if set.At(1).Indicator != "B" {
		t.Errorf("set changed after caller mutated copy: got %v", set.At(1).Indicator)
	}

	if set.Len() != 2 {
		t.Errorf("Len() = %d, want 2", set.Len())
	}
	if set.Source() != "mem" {
		t.Errorf("Source() = %q, want mem", set.Source())
	}
}

func TestObservationSet_Nil(t *testing.T) {
	var set *ObservationSet
	if set.Len() != 0 {
		t.Errorf("nil set Len() = %d, want 0", set.Len())
	}
	if set.Observations() != nil {
		t.Error("nil set Observations() should be nil")
	}
}

func TestYearBounds_Contains(t *testing.T) {
	b := YearBounds{MinYear: 1960, MaxYear: 2024}
	if !b.Contains(1960) || !b.Contains(2024) {
		t.Error("bounds should be inclusive")
	}
	if b.Contains(1959) || b.Contains(2025) {
		t.Error("bounds should exclude outside years")
	}
}

// TestErrors covers the error algebra
func TestErrors(t *testing.T) {
	notFound := &LoadError{Kind: SourceNotFound, Source: "missing.csv", Err: os.ErrNotExist}
	if !errors.Is(notFound, os.ErrNotExist) {
		t.Error("LoadError should unwrap to its cause")
	}
	if !strings.Contains(notFound.Error(), "missing.csv") {
		t.Errorf("LoadError message should name the source: %q", notFound.Error())
	}

	wrapped := fmt.Errorf("startup: %w", &LoadError{Kind: EmptyResult, Source: "x.csv"})
	var lErr *LoadError
	if !errors.As(wrapped, &lErr) || lErr.Kind != EmptyResult {
		t.Errorf("errors.As failed for wrapped LoadError: %v", wrapped)
	}

	kinds := map[LoadErrorKind]string{
		SourceNotFound:     "source_not_found",
		UnrecognizedLayout: "unrecognized_layout",
		EmptyResult:        "empty_result",
		LoadErrorKind(0):   "unknown",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}

	q := Query{Indicator: "A", YearFrom: 2050, YearTo: 2060}
	empty := &EmptyResultError{Query: &q}
	if !strings.Contains(empty.Error(), "no data for selected range") {
		t.Errorf("EmptyResultError message = %q", empty.Error())
	}

	transient := []interface{ IsTransient() bool }{
		notFound, &EmptyDatasetError{}, empty, &ValidationError{Message: "bad"},
	}
	for _, e := range transient {
		if e.IsTransient() {
			t.Errorf("%T should not be transient", e)
		}
	}
}
