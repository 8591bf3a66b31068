package dto

import (
	"strconv"
	"time"

	"github.com/yukikurage/brand-task-api/internal/models"
)

// CommentDTO represents a comment in API responses
type CommentDTO struct {
	ID        uint64       `json:"id"`
	TaskID    uint64       `json:"task_id"`
	Content   string       `json:"content"`
	Author    models.Actor `json:"author"`
	CreatedAt time.Time    `json:"created_at"`
}

// LegacyCommentDTO keeps the flat shape of the /api/comments endpoints,
// where identifiers are strings.
type LegacyCommentDTO struct {
	ID        string    `json:"_id"`
	TaskID    string    `json:"taskId"`
	Content   string    `json:"content"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail"`
	UserRole  string    `json:"userRole"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ToCommentDTO(comment models.Comment) CommentDTO {
	return CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		Content:   comment.Content,
		Author:    comment.Author,
		CreatedAt: comment.CreatedAt,
	}
}

func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	out := make([]CommentDTO, len(comments))
	for i, c := range comments {
		out[i] = ToCommentDTO(c)
	}
	return out
}

func ToLegacyCommentDTO(comment models.Comment) LegacyCommentDTO {
	return LegacyCommentDTO{
		ID:        strconv.FormatUint(comment.ID, 10),
		TaskID:    strconv.FormatUint(comment.TaskID, 10),
		Content:   comment.Content,
		UserID:    strconv.FormatUint(comment.Author.UserID, 10),
		UserName:  comment.Author.Name,
		UserEmail: comment.Author.Email,
		UserRole:  string(comment.Author.Role),
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

func ToLegacyCommentDTOs(comments []models.Comment) []LegacyCommentDTO {
	out := make([]LegacyCommentDTO, len(comments))
	for i, c := range comments {
		out[i] = ToLegacyCommentDTO(c)
	}
	return out
}
