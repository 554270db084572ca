package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"payables-consolidation-backend/internal/models"
)

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Expose DB if needed
func (r *RunRepository) DB() *gorm.DB {
	return r.db
}

func (r *RunRepository) Create(run *models.ConsolidationRun) error {
	return r.db.Create(run).Error
}

func (r *RunRepository) Get(id uuid.UUID) (*models.ConsolidationRun, error) {
	var run models.ConsolidationRun
	if err := r.db.First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepository) UpdateProgress(id uuid.UUID, processed, total int) error {
	return r.db.Model(&models.ConsolidationRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_count": processed,
			"total_invoices":  total,
		}).Error
}

func (r *RunRepository) MarkCompleted(id uuid.UUID, matched, unmatched, open int, metrics, diags datatypes.JSON) error {
	return r.db.Model(&models.ConsolidationRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"matched_count":   matched,
			"unmatched_count": unmatched,
			"open_count":      open,
			"metrics":         metrics,
			"diagnostics":     diags,
			"status":          "completed",
			"completed_at":    time.Now(),
		}).Error
}

func (r *RunRepository) MarkFailed(id uuid.UUID, reason string) error {
	return r.db.Model(&models.ConsolidationRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         "failed",
			"failure_reason": reason,
			"completed_at":   time.Now(),
		}).Error
}
