package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return true
	}
	return false
}

type Task struct {
	ID                uint64         `gorm:"primarykey" json:"id"`
	Title             string         `gorm:"type:varchar(255);not null" json:"title"`
	Description       string         `gorm:"type:text" json:"description"`
	Status            TaskStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CompletedApproval bool           `gorm:"not null;default:false" json:"completed_approval"`
	Priority          TaskPriority   `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	TaskType          string         `gorm:"type:varchar(50);not null;default:'regular'" json:"task_type"`
	DueDate           time.Time      `gorm:"not null;index" json:"due_date"`
	AssignedTo        string         `gorm:"type:varchar(255);not null;index" json:"assigned_to"`
	AssignedBy        string         `gorm:"type:varchar(255);not null;index" json:"assigned_by"`
	BrandID           *uint64        `gorm:"index" json:"brand_id"`
	CompanyName       string         `gorm:"type:varchar(255)" json:"company_name"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsOverdue is derived, never stored.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate.Before(now) && t.Status != TaskStatusCompleted
}
