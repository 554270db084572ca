package export

import (
	"time"

	"payables-consolidation-backend/internal/diagnostics"
	"payables-consolidation-backend/internal/models"
	"payables-consolidation-backend/internal/services/metrics"
)

// Row is one artifact line, one per deduplicated invoice.
type Row struct {
	InvoiceID         string     `json:"invoice_id"`
	VendorID          string     `json:"vendor_id"`
	VendorName        string     `json:"vendor_name"`
	AmountMinor       int64      `json:"amount"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	Status            string     `json:"status"`
	MatchedDocumentID *string    `json:"matched_document_id,omitempty"`
	MatchBasis        string     `json:"match_basis"`
	MatchScore        float64    `json:"match_score"`
	IsOpen            bool       `json:"is_open"`
	DaysOverdue       int        `json:"days_overdue"`
}

// Artifact is the consolidated dataset produced per run, consumed by the
// dashboard and the file organizer.
type Artifact struct {
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Rows        []Row              `json:"rows"`
	Metrics     metrics.Summary    `json:"metrics"`
	Diagnostics diagnostics.Report `json:"diagnostics"`
}

func Build(runID string, entries []models.ConsolidatedEntry, summary metrics.Summary, report diagnostics.Report, generatedAt time.Time) Artifact {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = RowFromEntry(e)
	}
	return Artifact{
		RunID:       runID,
		GeneratedAt: generatedAt,
		Rows:        rows,
		Metrics:     summary,
		Diagnostics: report,
	}
}

func RowFromEntry(e models.ConsolidatedEntry) Row {
	row := Row{
		InvoiceID:   e.Invoice.InvoiceID,
		VendorID:    e.Invoice.VendorID,
		VendorName:  e.Invoice.VendorName,
		AmountMinor: e.Invoice.AmountMinor,
		DueDate:     e.Invoice.DueDate,
		Status:      string(e.Invoice.Status),
		MatchBasis:  string(e.MatchBasis),
		MatchScore:  e.MatchScore,
		IsOpen:      e.IsOpen,
		DaysOverdue: e.DaysOverdue,
	}
	if e.Document != nil {
		id := e.Document.DocumentID
		row.MatchedDocumentID = &id
	}
	return row
}
