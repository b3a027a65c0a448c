package models

import (
	"fmt"
)

// LoadErrorKind classifies why a dataset could not be loaded
type LoadErrorKind int

const (
	SourceNotFound LoadErrorKind = iota + 1
	UnrecognizedLayout
	EmptyResult
)

// String returns the metric/label form of the kind
func (k LoadErrorKind) String() string {
	switch k {
	case SourceNotFound:
		return "source_not_found"
	case UnrecognizedLayout:
		return "unrecognized_layout"
	case EmptyResult:
		return "empty_result"
	default:
		return "unknown"
	}
}

// LoadError is fatal to a dashboard session: nothing can be rendered without data.
type LoadError struct {
	Kind   LoadErrorKind
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case SourceNotFound:
		if e.Err != nil {
			return fmt.Sprintf("data source %q not found: %v", e.Source, e.Err)
		}
		return fmt.Sprintf("data source %q not found", e.Source)
	case UnrecognizedLayout:
		if e.Err != nil {
			return fmt.Sprintf("data source %q has an unrecognized layout: %v", e.Source, e.Err)
		}
		return fmt.Sprintf("data source %q has an unrecognized layout", e.Source)
	case EmptyResult:
		return fmt.Sprintf("data source %q produced no usable observations", e.Source)
	default:
		return fmt.Sprintf("failed to load %q: %v", e.Source, e.Err)
	}
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsTransient returns false; a bad input file does not fix itself on retry
func (e *LoadError) IsTransient() bool {
	return false
}

// EmptyDatasetError is returned by year-bound lookups over an empty set
type EmptyDatasetError struct{}

func (e *EmptyDatasetError) Error() string {
	return "dataset contains no observations"
}

// IsTransient returns false as the dataset is immutable
func (e *EmptyDatasetError) IsTransient() bool {
	return false
}

// EmptyResultError reports that a query matched no observations, so there is
// nothing to summarize. Callers show a "no data" notice instead of statistics.
type EmptyResultError struct {
	Query *Query
}

func (e *EmptyResultError) Error() string {
	if e.Query != nil {
		return fmt.Sprintf("no data for selected range: %s", e.Query)
	}
	return "no data for selected range"
}

// IsTransient returns false as the dataset is immutable
func (e *EmptyResultError) IsTransient() bool {
	return false
}

// ValidationError represents invalid user input
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
