package render

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"climate-dashboard/internal/models"
)

// Sheet names used by WriteWorkbook.
const (
	DataSheet    = "Observations"
	SummarySheet = "Summary"
)

// numFmtThousands is the built-in "#,##0.00" number format.
const numFmtThousands = 4

// WriteWorkbook writes rows and their summary as an XLSX workbook to w.
// The data sheet holds Year/Value pairs; the summary sheet holds the three
// headline metrics next to their display strings.
func WriteWorkbook(w io.Writer, indicator string, rows []models.Observation, summary models.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	styleID, err := f.NewStyle(&excelize.Style{NumFmt: numFmtThousands})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	for i, header := range []string{"Indicator", "Year", "Value"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(DataSheet, cell, header); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(DataSheet, "A", "A", 40); err != nil {
		return err
	}

	for i, obs := range rows {
		row := i + 2
		values := []interface{}{obs.Indicator, obs.Year, obs.Value}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(DataSheet, cell, v); err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}
	if len(rows) > 0 {
		last, _ := excelize.CoordinatesToCellName(3, len(rows)+1)
		if err := f.SetCellStyle(DataSheet, "C2", last, styleID); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	summaryRows := [][]interface{}{
		{"Indicator", indicator, ""},
		{fmt.Sprintf("Latest (%d)", summary.LatestYear), summary.LatestValue, FormatValue(summary.LatestValue)},
		{"Maximum", summary.MaxValue, FormatValue(summary.MaxValue)},
		{"Average", summary.AverageValue, FormatValue(summary.AverageValue)},
		{"Observations", summary.Count, ""},
	}
	for r, values := range summaryRows {
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(SummarySheet, cell, v); err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}
	if err := f.SetCellStyle(SummarySheet, "B2", "B4", styleID); err != nil {
		return err
	}
	if err := f.SetColWidth(SummarySheet, "A", "C", 20); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
