package diagnostics

import "fmt"

// Row-level failures never abort a batch; they are collected here and surfaced
// to the dashboard's data-quality panel alongside unmatched-invoice warnings.

type MalformedRowError struct {
	Kind     string `json:"kind"` // "invoice" or "document"
	RowIndex int    `json:"row_index"`
	Field    string `json:"field"`
	Reason   string `json:"reason"`
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed %s row %d: field %q: %s", e.Kind, e.RowIndex, e.Field, e.Reason)
}

const (
	WarnAmbiguousMatch = "AMBIGUOUS_MATCH"
	WarnUnmatchedOpen  = "UNMATCHED_OPEN_INVOICE"
)

type Warning struct {
	Code      string `json:"code"`
	InvoiceID string `json:"invoice_id,omitempty"`
	Message   string `json:"message"`
}

// HistoryStoreUnavailableError is fatal for the deduplication step: without the
// history set, duplicate suppression cannot be guaranteed, so the run aborts
// before producing output.
type HistoryStoreUnavailableError struct {
	Err error
}

func (e *HistoryStoreUnavailableError) Error() string {
	return fmt.Sprintf("invoice history store unavailable: %v", e.Err)
}

func (e *HistoryStoreUnavailableError) Unwrap() error { return e.Err }

// Collector accumulates per-run diagnostics. It is not safe for concurrent use;
// pipeline stages run sequentially and each owns the collector while it runs.
type Collector struct {
	rows     []MalformedRowError
	warnings []Warning
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) AddRowError(err MalformedRowError) {
	c.rows = append(c.rows, err)
}

func (c *Collector) AddWarning(w Warning) {
	c.warnings = append(c.warnings, w)
}

func (c *Collector) RowErrors() []MalformedRowError { return c.rows }
func (c *Collector) Warnings() []Warning            { return c.warnings }

type Report struct {
	MalformedRows []MalformedRowError `json:"malformed_rows"`
	Warnings      []Warning           `json:"warnings"`
}

func (c *Collector) Report() Report {
	r := Report{
		MalformedRows: make([]MalformedRowError, len(c.rows)),
		Warnings:      make([]Warning, len(c.warnings)),
	}
	copy(r.MalformedRows, c.rows)
	copy(r.Warnings, c.warnings)
	return r
}
