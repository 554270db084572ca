package handler

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"payables-consolidation-backend/internal/config"
	"payables-consolidation-backend/internal/export"
	service "payables-consolidation-backend/internal/services/consolidation"
	"payables-consolidation-backend/internal/services/normalizer"
)

type ConsolidationHandler struct {
	service *service.Service
}

func NewConsolidationHandler(s *service.Service) *ConsolidationHandler {
	return &ConsolidationHandler{service: s}
}

// Run accepts the two CSV exports (invoices from the ERP, documents from the
// mailbox extractor), creates a run, and processes it in the background.
func (h *ConsolidationHandler) Run(c *gin.Context) {
	invoiceFile, invoiceHeader, err := c.Request.FormFile("invoices")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoices file required"})
		return
	}
	defer invoiceFile.Close()

	documentFile, documentHeader, err := c.Request.FormFile("documents")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documents file required"})
		return
	}
	defer documentFile.Close()

	// Parse both uploads before responding; the multipart files are gone once
	// the request completes.
	invoiceRows, err := readRawRows(invoiceFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read invoices CSV: " + err.Error()})
		return
	}
	documentRows, err := readRawRows(documentFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read documents CSV: " + err.Error()})
		return
	}

	sourceRunID := c.PostForm("source_run_id")
	if sourceRunID == "" {
		sourceRunID = time.Now().UTC().Format("20060102T150405")
	}

	run, err := h.service.CreateRun(invoiceHeader.Filename, documentHeader.Filename, sourceRunID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go func() {
		_, err := h.service.Execute(run.ID, service.RunInput{
			SourceRunID:  sourceRunID,
			InvoiceRows:  invoiceRows,
			DocumentRows: documentRows,
		})
		if err != nil {
			config.GetLogger().WithField("run_id", run.ID.String()).Error(err.Error())
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"run_id": run.ID.String(),
		"status": "processing",
	})
}

func (h *ConsolidationHandler) GetRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}

	run, err := h.service.GetRun(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":          run.ID.String(),
		"status":          run.Status,
		"processed_count": run.ProcessedCount,
		"total_invoices":  run.TotalInvoices,
		"matched_count":   run.MatchedCount,
		"unmatched_count": run.UnmatchedCount,
		"open_count":      run.OpenCount,
		"failure_reason":  run.FailureReason,
	})
}

func (h *ConsolidationHandler) ListEntries(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}

	status := c.Query("status")
	openOnly := c.Query("open") == "true"
	cursor := c.Query("cursor")
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	rows, nextCursor, hasMore, err := h.service.ListRows(runID, status, openOnly, cursor, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	run, err := h.service.GetRun(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       rows,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
		"metrics":     run.Metrics,
	})
}

// Artifact streams the consolidated workbook for a completed run.
func (h *ConsolidationHandler) Artifact(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}

	artifact, err := h.service.Artifact(runID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=consolidated_%s.xlsx", runID))
	if err := export.WriteWorkbook(artifact, c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write workbook"})
	}
}

func (h *ConsolidationHandler) Diagnostics(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}

	run, err := h.service.GetRun(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.Data(http.StatusOK, "application/json", run.Diagnostics)
}

// readRawRows reads an uploaded CSV into loosely-typed rows. The delimiter is
// sniffed from the first kilobyte, since some ERP exports are tab-separated.
func readRawRows(file multipart.File) ([]normalizer.RawRow, error) {
	sample := make([]byte, 1024)
	n, _ := file.Read(sample)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	if strings.Contains(string(sample[:n]), "\t") && !strings.Contains(string(sample[:n]), ",") {
		reader.Comma = '\t'
	}

	headerRow, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read CSV header: %w", err)
	}
	columns := make([]string, len(headerRow))
	for i, h := range headerRow {
		columns[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var rows []normalizer.RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Broken lines still become a row so the normalizer can report
			// them by index instead of dropping them silently.
			row := make(normalizer.RawRow, len(columns))
			for _, col := range columns {
				row[col] = ""
			}
			rows = append(rows, row)
			continue
		}
		if strings.Join(record, "") == "" {
			continue
		}
		row := make(normalizer.RawRow, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
