package matching

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"payables-consolidation-backend/internal/diagnostics"
	"payables-consolidation-backend/internal/models"
)

type Config struct {
	// AmountToleranceMinor is the maximum difference in minor units for a fuzzy
	// candidate to be eligible. Zero means exact.
	AmountToleranceMinor int64
	// DateWindowDays bounds the date-proximity contribution; proximity only
	// adjusts the score, it never gates eligibility.
	DateWindowDays int
	// VendorSimilarityThreshold gates fuzzy eligibility.
	VendorSimilarityThreshold float64
	// Workers bounds the goroutines scoring fuzzy candidates.
	Workers int
}

func DefaultConfig() Config {
	return Config{
		AmountToleranceMinor:      0,
		DateWindowDays:            5,
		VendorSimilarityThreshold: 0.8,
		Workers:                   4,
	}
}

const (
	vendorWeight = 0.7
	dateWeight   = 0.3
)

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{cfg: cfg}
}

// candidate is one scored (invoice, document) combination from the fuzzy pass.
type candidate struct {
	invIdx    int
	docIdx    int
	score     float64
	dateDist  int
	messageID string
}

// Match produces exactly one MatchedPair per invoice. Documents are claimed at
// most once. The exact pass pairs on reference identity; the fuzzy pass scores
// all eligible candidates and assigns them in one global greedy sweep over the
// sorted candidate list, so a weak invoice can never steal a document from a
// stronger match processed later.
func (e *Engine) Match(invoices []models.InvoiceRecord, documents []models.DocumentRecord, diag *diagnostics.Collector) []models.MatchedPair {
	pairs := make([]*models.MatchedPair, len(invoices))
	claimed := make([]bool, len(documents))

	e.exactPass(invoices, documents, pairs, claimed)
	e.fuzzyPass(invoices, documents, pairs, claimed, diag)

	result := make([]models.MatchedPair, len(invoices))
	for i, p := range pairs {
		if p == nil {
			result[i] = models.MatchedPair{
				Invoice:    invoices[i],
				MatchScore: 0.0,
				MatchBasis: models.BasisUnmatched,
			}
			continue
		}
		result[i] = *p
	}
	return result
}

func (e *Engine) exactPass(invoices []models.InvoiceRecord, documents []models.DocumentRecord, pairs []*models.MatchedPair, claimed []bool) {
	// Scan documents in message-id order so duplicate references resolve to the
	// earliest message deterministically.
	docOrder := make([]int, len(documents))
	for j := range docOrder {
		docOrder[j] = j
	}
	sort.Slice(docOrder, func(a, b int) bool {
		da, db := documents[docOrder[a]], documents[docOrder[b]]
		if da.SourceMessageID != db.SourceMessageID {
			return da.SourceMessageID < db.SourceMessageID
		}
		return da.DocumentID < db.DocumentID
	})

	for i := range invoices {
		keys := invoiceRefKeys(invoices[i])
		for _, j := range docOrder {
			if claimed[j] {
				continue
			}
			if referenceMatches(documents[j].DocumentID, keys) {
				claimed[j] = true
				pairs[i] = &models.MatchedPair{
					Invoice:    invoices[i],
					Document:   &documents[j],
					MatchScore: 1.0,
					MatchBasis: models.BasisExactID,
				}
				break
			}
		}
	}
}

func (e *Engine) fuzzyPass(invoices []models.InvoiceRecord, documents []models.DocumentRecord, pairs []*models.MatchedPair, claimed []bool, diag *diagnostics.Collector) {
	type combo struct{ inv, doc int }
	var todo []combo
	for i := range invoices {
		if pairs[i] != nil {
			continue
		}
		for j := range documents {
			if claimed[j] {
				continue
			}
			diff := invoices[i].AmountMinor - documents[j].AmountMinor
			if diff < 0 {
				diff = -diff
			}
			if diff > e.cfg.AmountToleranceMinor {
				continue
			}
			todo = append(todo, combo{inv: i, doc: j})
		}
	}
	if len(todo) == 0 {
		return
	}

	// Scoring is embarrassingly parallel: each slot is written by exactly one
	// worker, and the assignment below is a single deterministic pass, so the
	// outcome is independent of goroutine scheduling.
	scored := make([]candidate, len(todo))
	eligible := make([]bool, len(todo))

	var wg sync.WaitGroup
	chunk := (len(todo) + e.cfg.Workers - 1) / e.cfg.Workers
	for start := 0; start < len(todo); start += chunk {
		end := start + chunk
		if end > len(todo) {
			end = len(todo)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for k := start; k < end; k++ {
				inv := invoices[todo[k].inv]
				doc := documents[todo[k].doc]
				sim := VendorSimilarity(inv.VendorName, doc.VendorNameRaw)
				if sim < e.cfg.VendorSimilarityThreshold {
					continue
				}
				dist := dateDistanceDays(inv, doc)
				scored[k] = candidate{
					invIdx:    todo[k].inv,
					docIdx:    todo[k].doc,
					score:     vendorWeight*sim + dateWeight*e.dateProximity(dist),
					dateDist:  dist,
					messageID: doc.SourceMessageID,
				}
				eligible[k] = true
			}
		}(start, end)
	}
	wg.Wait()

	candidates := make([]candidate, 0, len(todo))
	for k := range scored {
		if eligible[k] {
			candidates = append(candidates, scored[k])
		}
	}

	// Global greedy assignment: best score first; ties broken by closest date,
	// then earliest message id, then invoice id for full determinism.
	sort.Slice(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.score != cb.score {
			return ca.score > cb.score
		}
		if ca.dateDist != cb.dateDist {
			return ca.dateDist < cb.dateDist
		}
		if ca.messageID != cb.messageID {
			return ca.messageID < cb.messageID
		}
		if invoices[ca.invIdx].InvoiceID != invoices[cb.invIdx].InvoiceID {
			return invoices[ca.invIdx].InvoiceID < invoices[cb.invIdx].InvoiceID
		}
		return ca.docIdx < cb.docIdx
	})

	type bestCount struct {
		score float64
		count int
	}
	ties := make(map[int]bestCount)
	for _, c := range candidates {
		bc, ok := ties[c.invIdx]
		if !ok || c.score > bc.score {
			ties[c.invIdx] = bestCount{score: c.score, count: 1}
			continue
		}
		if c.score == bc.score {
			bc.count++
			ties[c.invIdx] = bc
		}
	}

	for _, c := range candidates {
		if pairs[c.invIdx] != nil || claimed[c.docIdx] {
			continue
		}
		claimed[c.docIdx] = true
		pairs[c.invIdx] = &models.MatchedPair{
			Invoice:    invoices[c.invIdx],
			Document:   &documents[c.docIdx],
			MatchScore: c.score,
			MatchBasis: models.BasisAmountVendorDate,
		}
		if bc := ties[c.invIdx]; bc.count > 1 {
			diag.AddWarning(diagnostics.Warning{
				Code:      diagnostics.WarnAmbiguousMatch,
				InvoiceID: invoices[c.invIdx].InvoiceID,
				Message: fmt.Sprintf("%d candidate documents scored %.4f; paired with %s by tie-break",
					bc.count, bc.score, documents[c.docIdx].DocumentID),
			})
		}
	}
}

// dateProximity decays linearly from 1 at zero distance to 0 at the window
// edge and beyond.
func (e *Engine) dateProximity(distDays int) float64 {
	window := e.cfg.DateWindowDays
	if distDays == 0 {
		return 1
	}
	if window <= 0 || distDays >= window {
		return 0
	}
	return float64(window-distDays) / float64(window)
}

// dateDistanceDays is the closest distance in whole days between the document
// reference date and the invoice due date (falling back to the issue date when
// the due date is absent).
func dateDistanceDays(inv models.InvoiceRecord, doc models.DocumentRecord) int {
	best := distanceDays(inv.IssueDate, doc.ReferenceDate)
	if inv.DueDate != nil {
		if d := distanceDays(*inv.DueDate, doc.ReferenceDate); d < best {
			best = d
		}
	}
	return best
}

func distanceDays(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
