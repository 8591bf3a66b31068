package repository

import (
	"github.com/yukikurage/brand-task-api/internal/models"
	"gorm.io/gorm"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

// Create inserts a comment
func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// FindByID finds a comment by ID
func (r *GormCommentRepository) FindByID(id uint64) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByTask returns the comments of a task, newest first
func (r *GormCommentRepository) ListByTask(taskID uint64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.Where("task_id = ?", taskID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// IDsByTask returns the comment ids of a task in insertion order
func (r *GormCommentRepository) IDsByTask(taskID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&models.Comment{}).Where("task_id = ?", taskID).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// Delete removes a single comment
func (r *GormCommentRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Comment{}, id).Error
}
