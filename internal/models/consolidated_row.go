package models

import (
	"time"

	"github.com/google/uuid"
)

// ConsolidatedRow is the persisted form of a ConsolidatedEntry, one row per
// deduplicated invoice per run.
type ConsolidatedRow struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RunID             uuid.UUID  `gorm:"index" json:"run_id"`
	InvoiceID         string     `gorm:"index" json:"invoice_id"`
	VendorID          string     `json:"vendor_id"`
	VendorName        string     `json:"vendor_name"`
	AmountMinor       int64      `json:"amount"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	Status            string     `gorm:"index" json:"status"`
	MatchedDocumentID *string    `json:"matched_document_id,omitempty"`
	MatchBasis        string     `json:"match_basis"`
	MatchScore        float64    `json:"match_score"`
	IsOpen            bool       `gorm:"index" json:"is_open"`
	DaysOverdue       int        `json:"days_overdue"`
	CreatedAt         time.Time  `json:"created_at"`
}
