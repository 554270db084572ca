package filterengine

import (
	"sort"
	"time"

	"payables-consolidation-backend/internal/models"
)

type Options struct {
	// IncludeStatuses is the set of statuses considered payable.
	IncludeStatuses map[models.InvoiceStatus]bool
	// ExcludeCancelled drops cancelled invoices even when listed above.
	ExcludeCancelled bool
	// MinDaysOverdue keeps only invoices at least this many days past due.
	MinDaysOverdue int
	// LookaheadDays extends the cutoff past the run timestamp, so invoices due
	// in the near future are already treated as open for payment.
	LookaheadDays int
}

func DefaultOptions() Options {
	return Options{
		IncludeStatuses:  map[models.InvoiceStatus]bool{models.StatusOpen: true},
		ExcludeCancelled: true,
	}
}

// Consolidate derives the reporting row for every matched pair: days overdue at
// the run timestamp and whether the invoice qualifies as open for payment.
// Every pair yields a row, so the consolidated output always covers the whole
// deduplicated invoice set. Rows are ordered by due date, undated rows last.
func Consolidate(pairs []models.MatchedPair, opts Options, now time.Time) []models.ConsolidatedEntry {
	entries := make([]models.ConsolidatedEntry, len(pairs))
	for i, p := range pairs {
		entries[i] = models.ConsolidatedEntry{
			MatchedPair: p,
			IsOpen:      qualifies(p.Invoice, opts, now),
			DaysOverdue: DaysOverdue(p.Invoice.DueDate, now),
		}
	}
	sort.SliceStable(entries, func(a, b int) bool {
		da, db := entries[a].Invoice.DueDate, entries[b].Invoice.DueDate
		switch {
		case da == nil && db == nil:
			return entries[a].Invoice.InvoiceID < entries[b].Invoice.InvoiceID
		case da == nil:
			return false
		case db == nil:
			return true
		case !da.Equal(*db):
			return da.Before(*db)
		default:
			return entries[a].Invoice.InvoiceID < entries[b].Invoice.InvoiceID
		}
	})
	return entries
}

// Open returns the subset open for payment.
func Open(entries []models.ConsolidatedEntry) []models.ConsolidatedEntry {
	open := make([]models.ConsolidatedEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsOpen {
			open = append(open, e)
		}
	}
	return open
}

func qualifies(inv models.InvoiceRecord, opts Options, now time.Time) bool {
	if opts.ExcludeCancelled && inv.Status == models.StatusCancelled {
		return false
	}
	if !opts.IncludeStatuses[inv.Status] {
		return false
	}
	// An invoice without a due date cannot be scheduled for payment.
	if inv.DueDate == nil {
		return false
	}
	cutoff := now.AddDate(0, 0, opts.LookaheadDays)
	if inv.DueDate.After(cutoff) {
		return false
	}
	return DaysOverdue(inv.DueDate, now) >= opts.MinDaysOverdue
}

// DaysOverdue is the number of whole days the due date lies in the past at the
// given timestamp; zero when the invoice is not yet due or undated.
func DaysOverdue(due *time.Time, now time.Time) int {
	if due == nil || !due.Before(now) {
		return 0
	}
	return int(now.Sub(*due).Hours() / 24)
}
