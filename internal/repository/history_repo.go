package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"payables-consolidation-backend/internal/models"
	"payables-consolidation-backend/internal/services/dedup"
)

// HistoryRepository is the persistent dedup.HistoryStore: one row per invoice
// id ever accepted, updated in place when the mutable fields change.
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Lookup(invoiceID string) (dedup.Entry, bool, error) {
	var row models.InvoiceHistory
	err := r.db.First(&row, "invoice_id = ?", invoiceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dedup.Entry{}, false, nil
	}
	if err != nil {
		return dedup.Entry{}, false, err
	}
	return dedup.Entry{
		InvoiceID:   row.InvoiceID,
		AmountMinor: row.AmountMinor,
		Status:      models.InvoiceStatus(row.Status),
		SourceRunID: row.SourceRunID,
		LastSeenAt:  row.LastSeenAt,
	}, true, nil
}

func (r *HistoryRepository) Upsert(entries []dedup.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]models.InvoiceHistory, len(entries))
	for i, e := range entries {
		rows[i] = models.InvoiceHistory{
			InvoiceID:   e.InvoiceID,
			AmountMinor: e.AmountMinor,
			Status:      string(e.Status),
			SourceRunID: e.SourceRunID,
			LastSeenAt:  e.LastSeenAt,
		}
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "invoice_id"}},
		UpdateAll: true,
	}).Create(&rows).Error
}
