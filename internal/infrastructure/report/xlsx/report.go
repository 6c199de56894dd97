// Package xlsx writes an end-of-run spreadsheet of pipeline outcomes.
package xlsx

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

const (
	outcomesSheet = "Outcomes"
	summarySheet  = "Summary"
)

var header = []any{
	"File", "Status", "Category", "Description", "Confidence", "Source",
	"Destination", "Failed stage", "Error", "Attempts", "Detected", "Duration (s)",
}

// Write saves records to path, one row per outcome ordered by detection
// time, plus a per-category summary sheet.
func Write(path string, records []domain.OutcomeRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", outcomesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(outcomesSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(outcomesSheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	sorted := append([]domain.OutcomeRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Candidate.DetectedAt.Before(sorted[j].Candidate.DetectedAt)
	})

	counts := make(map[domain.Category]int)
	failed := 0
	for i, rec := range sorted {
		row := outcomeRow(rec)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(outcomesSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
		if rec.Success && rec.Classification != nil {
			counts[rec.Classification.Category]++
		}
		if !rec.Success {
			failed++
		}
	}
	if err := f.SetColWidth(outcomesSheet, "A", lastCol, 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if len(sorted) > 0 {
		if err := f.AutoFilter(outcomesSheet, fmt.Sprintf("A1:%s%d", lastCol, len(sorted)+1), nil); err != nil {
			return fmt.Errorf("set auto filter: %w", err)
		}
	}

	if err := writeSummary(f, counts, failed, bold); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func outcomeRow(rec domain.OutcomeRecord) []any {
	status := "organized"
	if !rec.Success {
		status = "failed"
	}
	var category, description, source string
	var confidence float64
	if c := rec.Classification; c != nil {
		category, description, source, confidence = string(c.Category), c.Description, string(c.Source), c.Confidence
	}
	return []any{
		rec.Candidate.Filename(), status, category, description, confidence, source,
		rec.Destination, string(rec.FailedStage), rec.Error, rec.Attempts,
		rec.Candidate.DetectedAt.Format(time.DateTime), rec.Duration().Seconds(),
	}
}

func writeSummary(f *excelize.File, counts map[domain.Category]int, failed int, bold int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := f.SetSheetRow(summarySheet, "A1", &[]any{"Category", "Files"}); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", bold); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	row := 2
	for _, c := range domain.Categories {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row), &[]any{string(c), counts[c]}); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
		row++
	}
	if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row), &[]any{"failed", failed}); err != nil {
		return fmt.Errorf("write summary row: %w", err)
	}
	return nil
}
