package normalizer

import (
	"fmt"
	"strings"
	"time"

	"payables-consolidation-backend/internal/diagnostics"
	"payables-consolidation-backend/internal/models"
	"payables-consolidation-backend/internal/textnorm"
)

// RawRow is one loosely-typed tabular row: column name -> cell value, with
// column names lowercased and trimmed by the CSV reader.
type RawRow map[string]string

type Options struct {
	// DateFormats are tried in order; first successful parse wins. The ERP
	// exports day-first dates, so those come first.
	DateFormats []string
}

func DefaultOptions() Options {
	return Options{
		DateFormats: []string{"02/01/2006", "02-01-2006", "2006-01-02"},
	}
}

var (
	invoiceColumns  = []string{"invoice_number", "vendor", "amount", "issue_date", "due_date", "status"}
	documentColumns = []string{"document_id_or_reference", "vendor", "amount", "reference_date", "type"}
)

// NormalizeInvoices converts raw invoice rows into canonical records. Rows that
// violate a constraint are skipped and reported to the collector; a batch with
// no rows or with a required column missing entirely is a structural failure.
func NormalizeInvoices(rows []RawRow, sourceRunID string, opts Options, diag *diagnostics.Collector) ([]models.InvoiceRecord, error) {
	if err := checkBatch(rows, invoiceColumns, "invoice"); err != nil {
		return nil, err
	}

	records := make([]models.InvoiceRecord, 0, len(rows))
	for i, row := range rows {
		rec, rowErr := normalizeInvoice(row, i, sourceRunID, opts)
		if rowErr != nil {
			diag.AddRowError(*rowErr)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// NormalizeDocuments converts raw document rows into canonical records.
func NormalizeDocuments(rows []RawRow, opts Options, diag *diagnostics.Collector) ([]models.DocumentRecord, error) {
	if err := checkBatch(rows, documentColumns, "document"); err != nil {
		return nil, err
	}

	records := make([]models.DocumentRecord, 0, len(rows))
	for i, row := range rows {
		rec, rowErr := normalizeDocument(row, i, opts)
		if rowErr != nil {
			diag.AddRowError(*rowErr)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func checkBatch(rows []RawRow, required []string, kind string) error {
	if len(rows) == 0 {
		return fmt.Errorf("%s input is empty", kind)
	}
	// Rows share a header, so the first row is representative.
	for _, col := range required {
		if _, ok := rows[0][col]; !ok {
			return fmt.Errorf("required column %q missing from %s input", col, kind)
		}
	}
	return nil
}

func normalizeInvoice(row RawRow, idx int, sourceRunID string, opts Options) (models.InvoiceRecord, *diagnostics.MalformedRowError) {
	fail := func(field, reason string) (models.InvoiceRecord, *diagnostics.MalformedRowError) {
		return models.InvoiceRecord{}, &diagnostics.MalformedRowError{Kind: "invoice", RowIndex: idx, Field: field, Reason: reason}
	}

	number := strings.TrimSpace(row["invoice_number"])
	if number == "" {
		return fail("invoice_number", "missing required field")
	}
	vendorName := strings.TrimSpace(row["vendor"])
	if vendorName == "" {
		return fail("vendor", "missing required field")
	}

	amount, err := ParseAmountMinor(row["amount"])
	if err != nil {
		return fail("amount", err.Error())
	}
	if amount < 0 {
		return fail("amount", "amount must not be negative")
	}

	issueDate, err := parseDate(row["issue_date"], opts.DateFormats)
	if err != nil {
		return fail("issue_date", err.Error())
	}

	var dueDate *time.Time
	if raw := strings.TrimSpace(row["due_date"]); raw != "" {
		d, err := parseDate(raw, opts.DateFormats)
		if err != nil {
			return fail("due_date", err.Error())
		}
		if d.Before(issueDate) {
			return fail("due_date", "due date precedes issue date")
		}
		dueDate = &d
	}

	vendorID := strings.TrimSpace(row["vendor_id"])
	if vendorID == "" {
		vendorID = vendorKey(vendorName)
	}

	invoiceID := strings.TrimSpace(row["invoice_id"])
	if invoiceID == "" {
		invoiceID = vendorID + ":" + number
	}

	return models.InvoiceRecord{
		InvoiceID:   invoiceID,
		VendorID:    vendorID,
		VendorName:  vendorName,
		AmountMinor: amount,
		IssueDate:   issueDate,
		DueDate:     dueDate,
		Status:      ParseStatus(row["status"]),
		SourceRunID: sourceRunID,
	}, nil
}

func normalizeDocument(row RawRow, idx int, opts Options) (models.DocumentRecord, *diagnostics.MalformedRowError) {
	fail := func(field, reason string) (models.DocumentRecord, *diagnostics.MalformedRowError) {
		return models.DocumentRecord{}, &diagnostics.MalformedRowError{Kind: "document", RowIndex: idx, Field: field, Reason: reason}
	}

	docID := strings.TrimSpace(row["document_id_or_reference"])
	if docID == "" {
		return fail("document_id_or_reference", "missing required field")
	}
	vendor := strings.TrimSpace(row["vendor"])
	if vendor == "" {
		return fail("vendor", "missing required field")
	}

	amount, err := ParseAmountMinor(row["amount"])
	if err != nil {
		return fail("amount", err.Error())
	}
	if amount < 0 {
		return fail("amount", "amount must not be negative")
	}

	refDate, err := parseDate(row["reference_date"], opts.DateFormats)
	if err != nil {
		return fail("reference_date", err.Error())
	}

	docType, err := parseDocumentType(row["type"])
	if err != nil {
		return fail("type", err.Error())
	}

	return models.DocumentRecord{
		DocumentID:      docID,
		VendorNameRaw:   vendor,
		AmountMinor:     amount,
		ReferenceDate:   refDate,
		DocumentType:    docType,
		SourceMessageID: strings.TrimSpace(row["source_message_id"]),
	}, nil
}

func parseDate(raw string, formats []string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing required field")
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

var statusByName = map[string]models.InvoiceStatus{
	"OPEN":      models.StatusOpen,
	"EM ABERTO": models.StatusOpen,
	"ABERTO":    models.StatusOpen,
	"SENT":      models.StatusOpen,
	"OVERDUE":   models.StatusOpen,
	"PAID":      models.StatusPaid,
	"PAGO":      models.StatusPaid,
	"PAGA":      models.StatusPaid,
	"CANCELLED": models.StatusCancelled,
	"CANCELED":  models.StatusCancelled,
	"CANCELADO": models.StatusCancelled,
	"CANCELADA": models.StatusCancelled,
}

// ParseStatus maps an exported status string onto the canonical enum, accepting
// the Portuguese spellings the ERP emits. Unrecognized values become UNKNOWN
// rather than failing the row.
func ParseStatus(raw string) models.InvoiceStatus {
	if status, ok := statusByName[textnorm.Fold(raw)]; ok {
		return status
	}
	return models.StatusUnknown
}

func parseDocumentType(raw string) (models.DocumentType, error) {
	switch textnorm.Fold(raw) {
	case "BOLETO":
		return models.DocTypeBoleto, nil
	case "NOTA_FISCAL", "NOTA FISCAL", "NF", "NFE", "NF-E":
		return models.DocTypeNotaFiscal, nil
	default:
		return "", fmt.Errorf("unknown document type %q", raw)
	}
}

func vendorKey(name string) string {
	return strings.Join(textnorm.Tokens(name), "-")
}
