package eval

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
)

const (
	resultsSheet = "Sheet1"
	summarySheet = "Summary"
)

// WriteReport writes the input columns plus the three metric columns to an xlsx workbook,
// with the metric means on a second sheet.
func WriteReport(path string, res *Result) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, 0, len(res.Table.Header)+3)
	for _, h := range res.Table.Header {
		header = append(header, h)
	}
	header = append(header, ColumnRougeL, ColumnBLEU, ColumnSemantic)
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range res.Table.Records {
		row := make([]interface{}, 0, len(res.Table.Header)+3)
		for j := range res.Table.Header {
			row = append(row, field(rec, j))
		}
		s := res.Scores[i]
		row = append(row, s.RougeL, s.BLEU, s.Semantic)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	means := res.Means()
	summary := [][]interface{}{
		{"Metric", "Mean"},
		{ColumnRougeL, means.RougeL},
		{ColumnBLEU, means.BLEU},
		{ColumnSemantic, means.Semantic},
		{"Rows", len(res.Scores)},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errs.Wrap("eval.WriteReport", errs.ErrIO, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errs.Wrap("eval.WriteReport", errs.ErrIO, fmt.Errorf("failed to save report: %w", err))
	}
	return nil
}
