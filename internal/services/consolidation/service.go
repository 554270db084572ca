package consolidation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"payables-consolidation-backend/internal/diagnostics"
	"payables-consolidation-backend/internal/export"
	"payables-consolidation-backend/internal/models"
	"payables-consolidation-backend/internal/repository"
	"payables-consolidation-backend/internal/services/dedup"
	"payables-consolidation-backend/internal/services/filterengine"
	"payables-consolidation-backend/internal/services/matching"
	"payables-consolidation-backend/internal/services/metrics"
	"payables-consolidation-backend/internal/services/normalizer"
)

// Service orchestrates one consolidation run: normalize both inputs, dedupe
// invoices against history, match, filter, aggregate, persist. The pipeline
// itself is a batch computation over immutable inputs; the service owns the
// surrounding persistence and progress reporting.
type Service struct {
	runs    *repository.RunRepository
	rows    *repository.ConsolidatedRowRepository
	history dedup.HistoryStore
	engine  *matching.Engine

	filterOpts filterengine.Options
	normOpts   normalizer.Options

	log *logrus.Logger
	now func() time.Time
}

func NewService(
	runs *repository.RunRepository,
	rows *repository.ConsolidatedRowRepository,
	history dedup.HistoryStore,
	matchCfg matching.Config,
	filterOpts filterengine.Options,
	normOpts normalizer.Options,
	log *logrus.Logger,
) *Service {
	return &Service{
		runs:       runs,
		rows:       rows,
		history:    history,
		engine:     matching.NewEngine(matchCfg),
		filterOpts: filterOpts,
		normOpts:   normOpts,
		log:        log,
		now:        time.Now,
	}
}

// SetClock overrides the run timestamp source. Tests use it to make aging and
// idempotence assertions deterministic.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

type RunInput struct {
	SourceRunID  string
	InvoiceRows  []normalizer.RawRow
	DocumentRows []normalizer.RawRow
}

type RunResult struct {
	Entries     []models.ConsolidatedEntry
	Summary     metrics.Summary
	Diagnostics diagnostics.Report
}

// CreateRun persists a new run record in "processing" state.
func (s *Service) CreateRun(invoiceFile, documentFile, sourceRunID string) (*models.ConsolidationRun, error) {
	run := &models.ConsolidationRun{
		ID:           uuid.New(),
		SourceRunID:  sourceRunID,
		InvoiceFile:  invoiceFile,
		DocumentFile: documentFile,
		Status:       "processing",
		StartedAt:    s.now(),
		CreatedAt:    s.now(),
	}
	if err := s.runs.Create(run); err != nil {
		return nil, err
	}
	return run, nil
}

// Execute runs the pipeline for a created run and persists the outcome. Errors
// mark the run failed; row-level problems never abort, they end up in the
// diagnostics report instead.
func (s *Service) Execute(runID uuid.UUID, in RunInput) (*RunResult, error) {
	result, err := s.process(runID, in)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"run_id": runID.String(),
			"error":  err.Error(),
		}).Error("consolidation run failed")
		if markErr := s.runs.MarkFailed(runID, err.Error()); markErr != nil {
			s.log.WithField("run_id", runID.String()).Error("could not mark run failed: " + markErr.Error())
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) process(runID uuid.UUID, in RunInput) (*RunResult, error) {
	now := s.now()
	diag := diagnostics.NewCollector()

	invoices, err := normalizer.NormalizeInvoices(in.InvoiceRows, in.SourceRunID, s.normOpts, diag)
	if err != nil {
		return nil, err
	}
	s.progress(runID, 0, len(invoices))

	documents, err := normalizer.NormalizeDocuments(in.DocumentRows, s.normOpts, diag)
	if err != nil {
		return nil, err
	}

	deduped, err := dedup.Deduplicate(invoices, s.history, now)
	if err != nil {
		// Without the history store, duplicate suppression cannot be
		// guaranteed, so the run aborts before producing output.
		return nil, err
	}
	// Suppressed re-imports are done at this point.
	s.progress(runID, len(invoices)-len(deduped), len(invoices))

	pairs := s.engine.Match(deduped, documents, diag)
	entries := filterengine.Consolidate(pairs, s.filterOpts, now)
	open := filterengine.Open(entries)
	s.progress(runID, len(invoices), len(invoices))

	for _, e := range open {
		if e.Document == nil {
			diag.AddWarning(diagnostics.Warning{
				Code:      diagnostics.WarnUnmatchedOpen,
				InvoiceID: e.Invoice.InvoiceID,
				Message:   "open invoice has no supporting billing document",
			})
		}
	}

	summary := metrics.Aggregate(open, now)

	matched := 0
	for _, p := range pairs {
		if p.Document != nil {
			matched++
		}
	}

	if err := s.persist(runID, entries, summary, diag.Report(), matched, len(pairs)-matched, now); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"run_id":    runID.String(),
		"invoices":  len(invoices),
		"deduped":   len(deduped),
		"matched":   matched,
		"unmatched": len(pairs) - matched,
		"open":      len(open),
	}).Info("consolidation run completed")

	return &RunResult{Entries: entries, Summary: summary, Diagnostics: diag.Report()}, nil
}

func (s *Service) progress(runID uuid.UUID, processed, total int) {
	if err := s.runs.UpdateProgress(runID, processed, total); err != nil {
		s.log.WithField("run_id", runID.String()).Warn("progress update failed: " + err.Error())
	}
}

func (s *Service) persist(runID uuid.UUID, entries []models.ConsolidatedEntry, summary metrics.Summary, report diagnostics.Report, matched, unmatched int, now time.Time) error {
	rows := make([]models.ConsolidatedRow, len(entries))
	for i, e := range entries {
		rows[i] = rowFromEntry(runID, e, now)
	}
	if err := s.rows.InsertBatch(rows); err != nil {
		return fmt.Errorf("persisting consolidated rows: %w", err)
	}

	metricsJSON, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	diagJSON, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return s.runs.MarkCompleted(runID, matched, unmatched, summary.OpenCount, datatypes.JSON(metricsJSON), datatypes.JSON(diagJSON))
}

func rowFromEntry(runID uuid.UUID, e models.ConsolidatedEntry, now time.Time) models.ConsolidatedRow {
	row := models.ConsolidatedRow{
		ID:          uuid.New(),
		RunID:       runID,
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
		CreatedAt:   now,
	}
	if e.Document != nil {
		id := e.Document.DocumentID
		row.MatchedDocumentID = &id
	}
	return row
}

func (s *Service) GetRun(id uuid.UUID) (*models.ConsolidationRun, error) {
	return s.runs.Get(id)
}

func (s *Service) ListRows(runID uuid.UUID, status string, openOnly bool, cursor string, limit int) ([]models.ConsolidatedRow, string, bool, error) {
	return s.rows.List(runID, status, openOnly, cursor, limit)
}

// Artifact rebuilds the export artifact for a completed run from the persisted
// rows and the metrics/diagnostics stored on the run record.
func (s *Service) Artifact(runID uuid.UUID) (export.Artifact, error) {
	run, err := s.runs.Get(runID)
	if err != nil {
		return export.Artifact{}, err
	}
	if run.Status != "completed" {
		return export.Artifact{}, fmt.Errorf("run %s is %s, artifact not available", runID, run.Status)
	}

	persisted, err := s.rows.ListAll(runID)
	if err != nil {
		return export.Artifact{}, err
	}

	var summary metrics.Summary
	if len(run.Metrics) > 0 {
		if err := json.Unmarshal(run.Metrics, &summary); err != nil {
			return export.Artifact{}, err
		}
	}
	var report diagnostics.Report
	if len(run.Diagnostics) > 0 {
		if err := json.Unmarshal(run.Diagnostics, &report); err != nil {
			return export.Artifact{}, err
		}
	}

	entries := make([]models.ConsolidatedEntry, len(persisted))
	for i, r := range persisted {
		entries[i] = entryFromRow(r)
	}

	generatedAt := run.StartedAt
	if run.CompletedAt != nil {
		generatedAt = *run.CompletedAt
	}
	return export.Build(runID.String(), entries, summary, report, generatedAt), nil
}

// entryFromRow inverts rowFromEntry as far as the artifact needs: the issue date
// and document details beyond the id are not persisted and not exported.
func entryFromRow(r models.ConsolidatedRow) models.ConsolidatedEntry {
	e := models.ConsolidatedEntry{
		MatchedPair: models.MatchedPair{
			Invoice: models.InvoiceRecord{
				InvoiceID:   r.InvoiceID,
				VendorID:    r.VendorID,
				VendorName:  r.VendorName,
				AmountMinor: r.AmountMinor,
				DueDate:     r.DueDate,
				Status:      models.InvoiceStatus(r.Status),
			},
			MatchScore: r.MatchScore,
			MatchBasis: models.MatchBasis(r.MatchBasis),
		},
		IsOpen:      r.IsOpen,
		DaysOverdue: r.DaysOverdue,
	}
	if r.MatchedDocumentID != nil {
		e.Document = &models.DocumentRecord{DocumentID: *r.MatchedDocumentID}
	}
	return e
}
