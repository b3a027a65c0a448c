package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"climate-dashboard/internal/models"
)

// Source yields a raw table for the normalizer
type Source interface {
	// Name identifies the source in errors and logs.
	Name() string
	// Table reads the whole source. A missing source returns a *models.LoadError
	// with Kind SourceNotFound.
	Table(ctx context.Context) (*RawTable, error)
}

// FileSource reads a CSV file from disk
type FileSource struct {
	Path string
}

// Name returns the file path
func (s FileSource) Name() string {
	return s.Path
}

// Table opens and parses the file
func (s FileSource) Table(ctx context.Context) (*RawTable, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, &models.LoadError{Kind: models.SourceNotFound, Source: s.Path, Err: err}
	}
	defer file.Close()

	return ReaderSource{Label: s.Path, Reader: file}.Table(ctx)
}

// ReaderSource parses CSV from an arbitrary stream
type ReaderSource struct {
	Label  string
	Reader io.Reader
}

// Name returns the configured label
func (s ReaderSource) Name() string {
	if s.Label == "" {
		return "stream"
	}
	return s.Label
}

// Table parses the stream
func (s ReaderSource) Table(ctx context.Context) (*RawTable, error) {
	if s.Reader == nil {
		return nil, &models.LoadError{Kind: models.SourceNotFound, Source: s.Name()}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := ReadCSV(s.Reader)
	if err != nil {
		return nil, &models.LoadError{Kind: models.UnrecognizedLayout, Source: s.Name(), Err: err}
	}
	return table, nil
}

// ObservationLister is the slice of the repository a RepositorySource needs
type ObservationLister interface {
	ListObservations(ctx context.Context) ([]models.Observation, error)
}

// RepositorySource reads the already-long relation from the SQL store
type RepositorySource struct {
	Label  string
	Lister ObservationLister
}

// Name returns the configured label
func (s RepositorySource) Name() string {
	if s.Label == "" {
		return "database"
	}
	return s.Label
}

// Table lists stored observations as a long Indicator/Year/Value table
func (s RepositorySource) Table(ctx context.Context) (*RawTable, error) {
	if s.Lister == nil {
		return nil, &models.LoadError{Kind: models.SourceNotFound, Source: s.Name()}
	}

	observations, err := s.Lister.ListObservations(ctx)
	if err != nil {
		return nil, &models.LoadError{
			Kind:   models.SourceNotFound,
			Source: s.Name(),
			Err:    fmt.Errorf("list observations: %w", err),
		}
	}

	table := &RawTable{
		Header: []string{"Indicator", "Year", "Value"},
		Rows:   make([][]string, 0, len(observations)),
	}
	for _, obs := range observations {
		table.Rows = append(table.Rows, []string{
			obs.Indicator,
			strconv.Itoa(obs.Year),
			strconv.FormatFloat(obs.Value, 'g', -1, 64),
		})
	}
	return table, nil
}
