package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RawTable is an untyped table: trimmed header names plus string rows.
// Rows may be shorter or longer than the header.
type RawTable struct {
	Header []string
	Rows   [][]string
	// Malformed counts CSV records the parser could not read.
	Malformed int
	// SkippedHXL is set when a hashtag row under the header was dropped.
	SkippedHXL bool
}

// ReadCSV parses r into a RawTable. A UTF-8 BOM on the first header cell is
// removed, and a HXL hashtag row ("#indicator+name,#date+year,...") directly
// under the header is skipped.
func ReadCSV(r io.Reader) (*RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("table has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	table := &RawTable{Header: make([]string, len(header))}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		table.Header[i] = strings.TrimSpace(h)
	}

	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				table.Malformed++
				continue
			}
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		if first {
			first = false
			if isHXLRow(row) {
				table.SkippedHXL = true
				continue
			}
		}

		if isBlankRow(row) {
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// isHXLRow reports whether every non-empty cell is a HXL hashtag.
func isHXLRow(row []string) bool {
	seen := false
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if !strings.HasPrefix(cell, "#") {
			return false
		}
		seen = true
	}
	return seen
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cell returns the trimmed i-th cell of row, or "" when the row is short.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
