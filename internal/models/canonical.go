package models

import "time"

// Canonical record types. The normalizer converts raw tabular rows into these
// immediately at the ingestion boundary; everything downstream (dedup, matching,
// filtering, metrics, export) operates on canonical types only.

type InvoiceStatus string

const (
	StatusOpen      InvoiceStatus = "OPEN"
	StatusPaid      InvoiceStatus = "PAID"
	StatusCancelled InvoiceStatus = "CANCELLED"
	StatusUnknown   InvoiceStatus = "UNKNOWN"
)

type DocumentType string

const (
	DocTypeBoleto     DocumentType = "BOLETO"
	DocTypeNotaFiscal DocumentType = "NOTA_FISCAL"
)

type MatchBasis string

const (
	BasisExactID          MatchBasis = "EXACT_ID"
	BasisAmountVendorDate MatchBasis = "AMOUNT_VENDOR_DATE"
	BasisUnmatched        MatchBasis = "UNMATCHED"
)

// InvoiceRecord is one ERP-exported payable line. AmountMinor is the amount in
// currency minor units (centavos), never a float. DueDate may be absent.
type InvoiceRecord struct {
	InvoiceID   string        `json:"invoice_id"`
	VendorID    string        `json:"vendor_id"`
	VendorName  string        `json:"vendor_name"`
	AmountMinor int64         `json:"amount"`
	IssueDate   time.Time     `json:"issue_date"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	Status      InvoiceStatus `json:"status"`
	SourceRunID string        `json:"source_run_id"`
}

// DocumentRecord is one billing document (boleto or nota fiscal) extracted from
// email by the retrieval service.
type DocumentRecord struct {
	DocumentID      string       `json:"document_id"`
	VendorNameRaw   string       `json:"vendor_name_raw"`
	AmountMinor     int64        `json:"amount"`
	ReferenceDate   time.Time    `json:"reference_date"`
	DocumentType    DocumentType `json:"document_type"`
	SourceMessageID string       `json:"source_message_id"`
}

// MatchedPair associates an invoice with at most one document. Document is nil
// for unmatched invoices; the invoice is still carried so no payable is ever
// dropped from reporting.
type MatchedPair struct {
	Invoice    InvoiceRecord   `json:"invoice"`
	Document   *DocumentRecord `json:"document,omitempty"`
	MatchScore float64         `json:"match_score"`
	MatchBasis MatchBasis      `json:"match_basis"`
}

// ConsolidatedEntry is the final reporting row: a matched pair plus the fields
// derived at the run timestamp.
type ConsolidatedEntry struct {
	MatchedPair
	IsOpen      bool `json:"is_open"`
	DaysOverdue int  `json:"days_overdue"`
}
