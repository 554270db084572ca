package models

import "time"

// InvoiceHistory is the deduplicator's append-only identity set: one row per
// invoice id ever accepted, carrying the mutable fields as last seen.
type InvoiceHistory struct {
	InvoiceID   string `gorm:"primaryKey"`
	AmountMinor int64
	Status      string
	SourceRunID string
	LastSeenAt  time.Time
}
