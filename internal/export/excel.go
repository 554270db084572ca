package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	consolidatedSheet = "Consolidated"
	metricsSheet      = "Metrics"

	// Formats the finance team expects in the review workbook.
	dateNumFmt     = "dd/mm/yyyy"
	currencyNumFmt = "#,##0.00;[Red](#,##0.00)"
)

var consolidatedHeaders = []string{
	"Invoice ID", "Vendor", "Amount", "Due Date", "Status",
	"Matched Document", "Match Basis", "Match Score", "Open", "Days Overdue",
}

// WriteWorkbook renders the artifact as an xlsx workbook: the consolidated
// dataset on one sheet, the aggregated metrics on another.
func WriteWorkbook(a Artifact, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", consolidatedSheet); err != nil {
		return err
	}
	if err := writeConsolidatedSheet(f, a); err != nil {
		return err
	}
	if _, err := f.NewSheet(metricsSheet); err != nil {
		return err
	}
	if err := writeMetricsSheet(f, a); err != nil {
		return err
	}
	return f.Write(w)
}

func writeConsolidatedSheet(f *excelize.File, a Artifact) error {
	for i, h := range consolidatedHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(consolidatedSheet, cell, h); err != nil {
			return err
		}
	}

	for i, row := range a.Rows {
		n := i + 2
		f.SetCellValue(consolidatedSheet, "A"+fmt.Sprint(n), row.InvoiceID)
		f.SetCellValue(consolidatedSheet, "B"+fmt.Sprint(n), row.VendorName)
		f.SetCellValue(consolidatedSheet, "C"+fmt.Sprint(n), float64(row.AmountMinor)/100)
		if row.DueDate != nil {
			f.SetCellValue(consolidatedSheet, "D"+fmt.Sprint(n), *row.DueDate)
		}
		f.SetCellValue(consolidatedSheet, "E"+fmt.Sprint(n), row.Status)
		if row.MatchedDocumentID != nil {
			f.SetCellValue(consolidatedSheet, "F"+fmt.Sprint(n), *row.MatchedDocumentID)
		}
		f.SetCellValue(consolidatedSheet, "G"+fmt.Sprint(n), row.MatchBasis)
		f.SetCellValue(consolidatedSheet, "H"+fmt.Sprint(n), row.MatchScore)
		f.SetCellValue(consolidatedSheet, "I"+fmt.Sprint(n), row.IsOpen)
		f.SetCellValue(consolidatedSheet, "J"+fmt.Sprint(n), row.DaysOverdue)
	}

	if len(a.Rows) == 0 {
		return nil
	}
	last := len(a.Rows) + 1

	dateFmt := dateNumFmt
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(consolidatedSheet, "D2", "D"+fmt.Sprint(last), dateStyle); err != nil {
		return err
	}

	currencyFmt := currencyNumFmt
	currencyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt})
	if err != nil {
		return err
	}
	return f.SetCellStyle(consolidatedSheet, "C2", "C"+fmt.Sprint(last), currencyStyle)
}

func writeMetricsSheet(f *excelize.File, a Artifact) error {
	m := a.Metrics

	f.SetCellValue(metricsSheet, "A1", "Run")
	f.SetCellValue(metricsSheet, "B1", a.RunID)
	f.SetCellValue(metricsSheet, "A2", "Generated At")
	f.SetCellValue(metricsSheet, "B2", a.GeneratedAt.Format("02/01/2006 15:04"))
	f.SetCellValue(metricsSheet, "A3", "Total Open Amount")
	f.SetCellValue(metricsSheet, "B3", float64(m.TotalOpenMinor)/100)
	f.SetCellValue(metricsSheet, "A4", "Open Invoices")
	f.SetCellValue(metricsSheet, "B4", m.OpenCount)
	f.SetCellValue(metricsSheet, "A5", "Unmatched Open Invoices")
	f.SetCellValue(metricsSheet, "B5", m.UnmatchedOpenCount)

	row := 7
	f.SetCellValue(metricsSheet, "A"+fmt.Sprint(row), "Aging Bucket")
	f.SetCellValue(metricsSheet, "B"+fmt.Sprint(row), "Amount")
	f.SetCellValue(metricsSheet, "C"+fmt.Sprint(row), "Count")
	for _, b := range m.AgingBuckets {
		row++
		f.SetCellValue(metricsSheet, "A"+fmt.Sprint(row), b.Label)
		f.SetCellValue(metricsSheet, "B"+fmt.Sprint(row), float64(b.AmountMinor)/100)
		f.SetCellValue(metricsSheet, "C"+fmt.Sprint(row), b.Count)
	}

	row += 2
	f.SetCellValue(metricsSheet, "A"+fmt.Sprint(row), "Vendor")
	f.SetCellValue(metricsSheet, "B"+fmt.Sprint(row), "Amount")
	f.SetCellValue(metricsSheet, "C"+fmt.Sprint(row), "Count")
	for _, vt := range m.VendorTotals {
		row++
		f.SetCellValue(metricsSheet, "A"+fmt.Sprint(row), vt.VendorName)
		f.SetCellValue(metricsSheet, "B"+fmt.Sprint(row), float64(vt.AmountMinor)/100)
		f.SetCellValue(metricsSheet, "C"+fmt.Sprint(row), vt.Count)
	}

	return nil
}
