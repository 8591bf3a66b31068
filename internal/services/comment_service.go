package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/repository"
	"github.com/yukikurage/brand-task-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrCommentContentRequired = errors.New("comment content is required")
	ErrCommentNotFound        = errors.New("comment not found")
	ErrCommentForbidden       = errors.New("only the comment author or an admin can delete this comment")
)

// CommentService manages comments on tasks the caller can access.
type CommentService struct {
	commentRepo repository.CommentRepository
	taskService *TaskService
}

func NewCommentService(commentRepo repository.CommentRepository, taskService *TaskService) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskService: taskService,
	}
}

// AddComment attaches a comment authored by identity.
func (s *CommentService) AddComment(taskID uint64, content string, identity *models.Identity) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrCommentContentRequired
	}
	if _, err := s.taskService.GetTask(taskID, identity); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		TaskID:  taskID,
		Content: content,
		Author:  identity.Actor(),
	}
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

// ListComments returns the comments of a task, newest first.
func (s *CommentService) ListComments(taskID uint64, identity *models.Identity) ([]models.Comment, error) {
	if _, err := s.taskService.GetTask(taskID, identity); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// DeleteComment removes a comment of the given task. Only its author or an
// admin may do so.
func (s *CommentService) DeleteComment(taskID, commentID uint64, identity *models.Identity) error {
	if identity == nil {
		return ErrUnauthorized
	}

	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to find comment: %w", err)
	}
	if comment.TaskID != taskID {
		return ErrCommentNotFound
	}

	isAuthor := comment.Author.UserID == identity.ID || utils.SameEmail(comment.Author.Email, identity.Email)
	if !isAuthor && !identity.IsAdmin() {
		return ErrCommentForbidden
	}

	if err := s.commentRepo.Delete(commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}
