package repository

import (
	"github.com/yukikurage/brand-task-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskHistoryRepository is a GORM implementation of TaskHistoryRepository
type GormTaskHistoryRepository struct {
	db *gorm.DB
}

// NewTaskHistoryRepository creates a new TaskHistoryRepository
func NewTaskHistoryRepository(db *gorm.DB) TaskHistoryRepository {
	return &GormTaskHistoryRepository{db: db}
}

// Append inserts a history row
func (r *GormTaskHistoryRepository) Append(entry *models.TaskHistory) error {
	return r.db.Create(entry).Error
}

// ListByTask returns the history of a task, newest first
func (r *GormTaskHistoryRepository) ListByTask(taskID uint64) ([]models.TaskHistory, error) {
	var entries []models.TaskHistory
	if err := r.db.Where("task_id = ?", taskID).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// IDsByTask returns the history ids of a task in insertion order
func (r *GormTaskHistoryRepository) IDsByTask(taskID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&models.TaskHistory{}).Where("task_id = ?", taskID).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}
