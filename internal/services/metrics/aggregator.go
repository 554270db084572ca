package metrics

import (
	"sort"
	"time"

	"payables-consolidation-backend/internal/models"
)

type VendorTotal struct {
	VendorID    string `json:"vendor_id"`
	VendorName  string `json:"vendor_name"`
	AmountMinor int64  `json:"amount"`
	Count       int    `json:"count"`
}

type AgingBucket struct {
	Label       string `json:"label"`
	MinDays     int    `json:"min_days"`
	MaxDays     int    `json:"max_days"` // -1 = unbounded
	AmountMinor int64  `json:"amount"`
	Count       int    `json:"count"`
}

type Summary struct {
	RunTimestamp       time.Time     `json:"run_timestamp"`
	TotalOpenMinor     int64         `json:"total_open_amount"`
	OpenCount          int           `json:"open_count"`
	VendorTotals       []VendorTotal `json:"vendor_totals"`
	AgingBuckets       []AgingBucket `json:"aging_buckets"`
	UnmatchedOpenCount int           `json:"unmatched_open_count"`
}

// Bucket boundaries are inclusive on the lower end: day 30 ages into the first
// bucket, day 31 into the second.
func newBuckets() []AgingBucket {
	return []AgingBucket{
		{Label: "0-30", MinDays: 0, MaxDays: 30},
		{Label: "31-60", MinDays: 31, MaxDays: 60},
		{Label: "61-90", MinDays: 61, MaxDays: 90},
		{Label: ">90", MinDays: 91, MaxDays: -1},
	}
}

// Aggregate computes the reporting metrics over the open-for-payment entries.
// Output is deterministic: vendor totals are sorted by vendor id, buckets are
// fixed. The unmatched-open count is a data-quality signal for the dashboard:
// invoices that must be paid but have no supporting document.
func Aggregate(open []models.ConsolidatedEntry, now time.Time) Summary {
	summary := Summary{
		RunTimestamp: now,
		AgingBuckets: newBuckets(),
	}

	byVendor := make(map[string]*VendorTotal)
	for _, e := range open {
		inv := e.Invoice
		summary.TotalOpenMinor += inv.AmountMinor
		summary.OpenCount++

		vt, ok := byVendor[inv.VendorID]
		if !ok {
			vt = &VendorTotal{VendorID: inv.VendorID, VendorName: inv.VendorName}
			byVendor[inv.VendorID] = vt
		}
		vt.AmountMinor += inv.AmountMinor
		vt.Count++

		b := bucketIndex(e.DaysOverdue)
		summary.AgingBuckets[b].AmountMinor += inv.AmountMinor
		summary.AgingBuckets[b].Count++

		if e.Document == nil {
			summary.UnmatchedOpenCount++
		}
	}

	summary.VendorTotals = make([]VendorTotal, 0, len(byVendor))
	for _, vt := range byVendor {
		summary.VendorTotals = append(summary.VendorTotals, *vt)
	}
	sort.Slice(summary.VendorTotals, func(a, b int) bool {
		return summary.VendorTotals[a].VendorID < summary.VendorTotals[b].VendorID
	})

	return summary
}

func bucketIndex(daysOverdue int) int {
	switch {
	case daysOverdue <= 30:
		return 0
	case daysOverdue <= 60:
		return 1
	case daysOverdue <= 90:
		return 2
	default:
		return 3
	}
}
