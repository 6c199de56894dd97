package xlsx

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

func TestWriteReport(t *testing.T) {
	day := time.Date(2025, 10, 23, 9, 0, 0, 0, time.UTC)
	records := []domain.OutcomeRecord{
		{
			Candidate: domain.NewScanCandidate("/scans/scan_002.pdf", day.Add(time.Minute)),
			Success:   false, FailedStage: domain.StageExtracting, Error: "engine crashed", Attempts: 2,
		},
		{
			Candidate: domain.NewScanCandidate("/scans/scan_001.pdf", day),
			Success:   true,
			Classification: &domain.ClassificationResult{
				Category: domain.CategoryReceipts, Description: "walmart_receipt", Confidence: 0.3, Source: domain.SourceKeyword,
			},
			Destination: "/scans/receipts/walmart_receipt_10232025.pdf",
			Attempts:    1,
		},
	}
	path := filepath.Join(t.TempDir(), "report.xlsx")

	require.NoError(t, Write(path, records))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(outcomesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "File", rows[0][0])
	assert.Equal(t, []string{"scan_001.pdf", "organized", "receipts", "walmart_receipt"}, rows[1][:4])
	assert.Equal(t, "failed", rows[2][1])
	assert.Equal(t, "extracting", rows[2][7])

	receipts, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "1", receipts)
}
