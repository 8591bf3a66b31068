package dto

import (
	"time"

	"github.com/yukikurage/brand-task-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuthDTO is returned by register and login
type AuthDTO struct {
	User  UserDTO `json:"user"`
	Token string  `json:"token"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID                uint64              `json:"id"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	Status            models.TaskStatus   `json:"status"`
	CompletedApproval bool                `json:"completed_approval"`
	Priority          models.TaskPriority `json:"priority"`
	TaskType          string              `json:"task_type"`
	DueDate           time.Time           `json:"due_date"`
	Overdue           bool                `json:"overdue"`
	AssignedTo        string              `json:"assigned_to"`
	AssignedBy        string              `json:"assigned_by"`
	BrandID           *uint64             `json:"brand_id"`
	CompanyName       string              `json:"company_name"`
	CommentIDs        []uint64            `json:"comments,omitempty"`
	HistoryIDs        []uint64            `json:"history,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// TaskHistoryDTO represents an audit entry
type TaskHistoryDTO struct {
	ID               uint64             `json:"id"`
	TaskID           uint64             `json:"task_id"`
	Action           models.TaskAction  `json:"action"`
	Description      string             `json:"description"`
	OldStatus        *models.TaskStatus `json:"old_status,omitempty"`
	NewStatus        *models.TaskStatus `json:"new_status,omitempty"`
	Note             string             `json:"note,omitempty"`
	RecheckRequested bool               `json:"recheck_requested"`
	Actor            models.Actor       `json:"actor"`
	Timestamp        time.Time          `json:"timestamp"`
}

// GeneratedTaskDTO is an AI suggestion that has not been saved
type GeneratedTaskDTO struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// ToUserDTOs converts users
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, user := range users {
		out[i] = ToUserDTO(user)
	}
	return out
}

// ToTaskDTO converts a Task model to TaskDTO. Overdue is evaluated at now.
func ToTaskDTO(task models.Task, now time.Time) TaskDTO {
	return TaskDTO{
		ID:                task.ID,
		Title:             task.Title,
		Description:       task.Description,
		Status:            task.Status,
		CompletedApproval: task.CompletedApproval,
		Priority:          task.Priority,
		TaskType:          task.TaskType,
		DueDate:           task.DueDate,
		Overdue:           task.IsOverdue(now),
		AssignedTo:        task.AssignedTo,
		AssignedBy:        task.AssignedBy,
		BrandID:           task.BrandID,
		CompanyName:       task.CompanyName,
		CreatedAt:         task.CreatedAt,
		UpdatedAt:         task.UpdatedAt,
	}
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task, now time.Time) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task, now)
	}
	return items
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64, now time.Time) TaskListResponse {
	totalPages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		totalPages++
	}

	return TaskListResponse{
		Tasks:      ToTaskDTOs(tasks, now),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}

// ToTaskHistoryDTOs converts audit rows
func ToTaskHistoryDTOs(entries []models.TaskHistory) []TaskHistoryDTO {
	out := make([]TaskHistoryDTO, len(entries))
	for i, e := range entries {
		out[i] = TaskHistoryDTO{
			ID:               e.ID,
			TaskID:           e.TaskID,
			Action:           e.Action,
			Description:      e.Description,
			OldStatus:        e.OldStatus,
			NewStatus:        e.NewStatus,
			Note:             e.Note,
			RecheckRequested: e.RecheckRequested,
			Actor:            e.Actor,
			Timestamp:        e.Timestamp,
		}
	}
	return out
}
