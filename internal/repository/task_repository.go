package repository

import (
	"github.com/yukikurage/brand-task-api/internal/database"
	"github.com/yukikurage/brand-task-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{})

	if filter.ParticipantEmail != "" {
		query = query.Where("LOWER(tasks.assigned_to) = ? OR LOWER(tasks.assigned_by) = ?",
			filter.ParticipantEmail, filter.ParticipantEmail)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.BrandID != nil {
		query = query.Where("tasks.brand_id = ?", *filter.BrandID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Order("tasks.created_at DESC").
		Order("tasks.id DESC").
		Scopes(database.Paginate(filter.Page, filter.PageSize)).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// ListByBrand returns the tasks of a brand, newest first
func (r *GormTaskRepository) ListByBrand(brandID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.Where("brand_id = ?", brandID).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// CountByBrand counts tasks of a brand
func (r *GormTaskRepository) CountByBrand(brandID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Task{}).Where("brand_id = ?", brandID).Count(&count).Error
	return count, err
}

// UpdateFields updates the given columns of a task
func (r *GormTaskRepository) UpdateFields(id uint64, fields map[string]any) error {
	return r.db.Model(&models.Task{}).Where("id = ?", id).Updates(fields).Error
}

// Delete deletes a task with its comments and history
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteTaskDependents(tx, []uint64{id}); err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}

func deleteTaskDependents(tx *gorm.DB, taskIDs []uint64) error {
	if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	return tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskHistory{}).Error
}
