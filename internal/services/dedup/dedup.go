package dedup

import (
	"time"

	"payables-consolidation-backend/internal/diagnostics"
	"payables-consolidation-backend/internal/models"
)

// Entry is what the history store remembers about an accepted invoice id: the
// mutable fields as last seen, so that re-imports with changed amount or status
// pass through while exact repeats are suppressed.
type Entry struct {
	InvoiceID   string
	AmountMinor int64
	Status      models.InvoiceStatus
	SourceRunID string
	LastSeenAt  time.Time
}

// HistoryStore is the deduplicator's only external dependency. Implementations
// must be used under a single-writer discipline: one run completes its upsert
// before the next run reads.
type HistoryStore interface {
	Lookup(invoiceID string) (Entry, bool, error)
	Upsert(entries []Entry) error
}

// Deduplicate returns the records that are new or whose amount/status changed
// since last seen, and updates the history accordingly. Within the batch,
// records sharing an invoice id collapse to one winner: the later source run
// id, ties broken by later batch position. Any store failure is fatal.
func Deduplicate(records []models.InvoiceRecord, store HistoryStore, now time.Time) ([]models.InvoiceRecord, error) {
	winners := make(map[string]models.InvoiceRecord, len(records))
	order := make([]string, 0, len(records))

	for _, rec := range records {
		prev, seen := winners[rec.InvoiceID]
		if !seen {
			order = append(order, rec.InvoiceID)
			winners[rec.InvoiceID] = rec
			continue
		}
		// Later position wins ties on source run id.
		if rec.SourceRunID >= prev.SourceRunID {
			winners[rec.InvoiceID] = rec
		}
	}

	accepted := make([]models.InvoiceRecord, 0, len(order))
	upserts := make([]Entry, 0, len(order))

	for _, id := range order {
		rec := winners[id]
		last, found, err := store.Lookup(id)
		if err != nil {
			return nil, &diagnostics.HistoryStoreUnavailableError{Err: err}
		}
		if found && last.AmountMinor == rec.AmountMinor && last.Status == rec.Status {
			continue // unchanged re-import, dropped silently
		}
		accepted = append(accepted, rec)
		upserts = append(upserts, Entry{
			InvoiceID:   rec.InvoiceID,
			AmountMinor: rec.AmountMinor,
			Status:      rec.Status,
			SourceRunID: rec.SourceRunID,
			LastSeenAt:  now,
		})
	}

	if len(upserts) > 0 {
		if err := store.Upsert(upserts); err != nil {
			return nil, &diagnostics.HistoryStoreUnavailableError{Err: err}
		}
	}
	return accepted, nil
}
