package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"payables-consolidation-backend/internal/models"
)

type ConsolidatedRowRepository struct {
	db *gorm.DB
}

func NewConsolidatedRowRepository(db *gorm.DB) *ConsolidatedRowRepository {
	return &ConsolidatedRowRepository{db: db}
}

func (r *ConsolidatedRowRepository) InsertBatch(rows []models.ConsolidatedRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Create(&rows).Error
}

// List returns the run's consolidated rows with cursor pagination, optionally
// filtered by status or restricted to open rows.
func (r *ConsolidatedRowRepository) List(runID uuid.UUID, status string, openOnly bool, cursor string, limit int) ([]models.ConsolidatedRow, string, bool, error) {
	var rows []models.ConsolidatedRow

	query := r.db.
		Where("run_id = ?", runID).
		Order("id ASC").
		Limit(limit + 1)

	if status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}
	if openOnly {
		query = query.Where("is_open = ?", true)
	}
	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := false
	var nextCursor string
	if len(rows) > limit {
		hasMore = true
		nextCursor = rows[limit-1].ID.String()
		rows = rows[:limit]
	}
	return rows, nextCursor, hasMore, nil
}

// ListAll returns every row of a run in due-date order, undated rows last, for
// artifact export. The order matches the consolidated entries as produced by the
// pipeline; it cannot rely on insertion order because ids are random and a whole
// run shares one created_at.
func (r *ConsolidatedRowRepository) ListAll(runID uuid.UUID) ([]models.ConsolidatedRow, error) {
	var rows []models.ConsolidatedRow
	err := r.db.Where("run_id = ?", runID).
		Order("due_date IS NULL, due_date ASC, invoice_id ASC").
		Find(&rows).Error
	return rows, err
}
