package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ConsolidationRun struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	SourceRunID    string    `gorm:"index"`
	InvoiceFile    string
	DocumentFile   string
	TotalInvoices  int
	ProcessedCount int
	MatchedCount   int
	UnmatchedCount int
	OpenCount      int
	Status         string `gorm:"index"`
	FailureReason  string
	Metrics        datatypes.JSON
	Diagnostics    datatypes.JSON
	StartedAt      time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
}
