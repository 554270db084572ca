package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"payables-consolidation-backend/internal/diagnostics"
	"payables-consolidation-backend/internal/models"
	"payables-consolidation-backend/internal/services/metrics"
)

func testArtifact() Artifact {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	docID := "INV-100"
	return Artifact{
		RunID:       "run-abc",
		GeneratedAt: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
		Rows: []Row{
			{
				InvoiceID:         "ACME-LTDA:INV-100",
				VendorID:          "ACME-LTDA",
				VendorName:        "Acme Ltda",
				AmountMinor:       150000,
				DueDate:           &due,
				Status:            string(models.StatusOpen),
				MatchedDocumentID: &docID,
				MatchBasis:        string(models.BasisExactID),
				MatchScore:        1.0,
				IsOpen:            true,
				DaysOverdue:       22,
			},
			{
				InvoiceID:   "BETA:INV-7",
				VendorID:    "BETA",
				VendorName:  "Beta SA",
				AmountMinor: 9900,
				Status:      string(models.StatusOpen),
				MatchBasis:  string(models.BasisUnmatched),
				IsOpen:      false,
			},
		},
		Metrics: metrics.Summary{
			RunTimestamp:   time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
			TotalOpenMinor: 150000,
			OpenCount:      1,
			VendorTotals: []metrics.VendorTotal{
				{VendorID: "ACME-LTDA", VendorName: "Acme Ltda", AmountMinor: 150000, Count: 1},
			},
			AgingBuckets: []metrics.AgingBucket{
				{Label: "0-30", MinDays: 0, MaxDays: 30, AmountMinor: 150000, Count: 1},
				{Label: "31-60", MinDays: 31, MaxDays: 60},
				{Label: "61-90", MinDays: 61, MaxDays: 90},
				{Label: ">90", MinDays: 91, MaxDays: -1},
			},
			UnmatchedOpenCount: 0,
		},
		Diagnostics: diagnostics.Report{},
	}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(testArtifact(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Consolidated")
	assert.Contains(t, sheets, "Metrics")

	header, err := f.GetCellValue("Consolidated", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Invoice ID", header)

	invoiceID, err := f.GetCellValue("Consolidated", "A2")
	require.NoError(t, err)
	assert.Equal(t, "ACME-LTDA:INV-100", invoiceID)

	amount, err := f.GetCellValue("Consolidated", "C2")
	require.NoError(t, err)
	assert.Equal(t, "1,500.00", amount, "amount renders in major units with the finance format")

	dueDate, err := f.GetCellValue("Consolidated", "D2")
	require.NoError(t, err)
	assert.Equal(t, "10/01/2024", dueDate)

	matchedDoc, err := f.GetCellValue("Consolidated", "F2")
	require.NoError(t, err)
	assert.Equal(t, "INV-100", matchedDoc)

	// The unmatched row has no due date and no document.
	emptyDue, err := f.GetCellValue("Consolidated", "D3")
	require.NoError(t, err)
	assert.Empty(t, emptyDue)

	runCell, err := f.GetCellValue("Metrics", "B1")
	require.NoError(t, err)
	assert.Equal(t, "run-abc", runCell)

	bucketLabel, err := f.GetCellValue("Metrics", "A8")
	require.NoError(t, err)
	assert.Equal(t, "0-30", bucketLabel)
}

func TestWriteWorkbook_EmptyArtifact(t *testing.T) {
	a := testArtifact()
	a.Rows = nil

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(a, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Consolidated", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Invoice ID", header)
}

func TestBuildArtifact(t *testing.T) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	doc := models.DocumentRecord{DocumentID: "INV-100"}
	entries := []models.ConsolidatedEntry{
		{
			MatchedPair: models.MatchedPair{
				Invoice: models.InvoiceRecord{
					InvoiceID:   "ACME-LTDA:INV-100",
					VendorID:    "ACME-LTDA",
					VendorName:  "Acme Ltda",
					AmountMinor: 150000,
					DueDate:     &due,
					Status:      models.StatusOpen,
				},
				Document:   &doc,
				MatchScore: 1.0,
				MatchBasis: models.BasisExactID,
			},
			IsOpen:      true,
			DaysOverdue: 22,
		},
	}

	a := Build("run-abc", entries, metrics.Summary{}, diagnostics.Report{}, time.Now())
	require.Len(t, a.Rows, 1)
	assert.Equal(t, "ACME-LTDA:INV-100", a.Rows[0].InvoiceID)
	require.NotNil(t, a.Rows[0].MatchedDocumentID)
	assert.Equal(t, "INV-100", *a.Rows[0].MatchedDocumentID)
	assert.Equal(t, string(models.BasisExactID), a.Rows[0].MatchBasis)
	assert.True(t, a.Rows[0].IsOpen)
}
