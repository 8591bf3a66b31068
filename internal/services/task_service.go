package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yukikurage/brand-task-api/internal/constants"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/repository"
	"github.com/yukikurage/brand-task-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrTaskForbidden          = errors.New("you do not have permission to access this task")
	ErrNotTaskAssigner        = errors.New("only the assigner or an admin can approve this task")
	ErrTitleRequired          = errors.New("title is required")
	ErrAssigneeRequired       = errors.New("assignedTo is required")
	ErrDueDateRequired        = errors.New("dueDate is required")
	ErrInvalidTaskStatus      = errors.New("invalid task status")
	ErrInvalidTaskPriority    = errors.New("invalid task priority")
	ErrApprovalIrreversible   = errors.New("completed approval cannot be revoked once granted")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// TaskAccessible reports whether identity may read or change task.
func TaskAccessible(task *models.Task, identity *models.Identity) bool {
	if identity == nil {
		return false
	}
	if identity.IsAdmin() {
		return true
	}
	return utils.SameEmail(identity.Email, task.AssignedTo) || utils.SameEmail(identity.Email, task.AssignedBy)
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo    repository.TaskRepository
	commentRepo repository.CommentRepository
	historyRepo repository.TaskHistoryRepository
	userRepo    repository.UserRepository
	brandRepo   repository.BrandRepository
	recorder    *AuditRecorder
	aiService   *AIService
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo repository.TaskRepository,
	commentRepo repository.CommentRepository,
	historyRepo repository.TaskHistoryRepository,
	userRepo repository.UserRepository,
	brandRepo repository.BrandRepository,
	recorder *AuditRecorder,
	aiService *AIService,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		commentRepo: commentRepo,
		historyRepo: historyRepo,
		userRepo:    userRepo,
		brandRepo:   brandRepo,
		recorder:    recorder,
		aiService:   aiService,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Identity *models.Identity
	Status   *models.TaskStatus
	Priority *models.TaskPriority
	BrandID  *uint64
	Page     int
	PageSize int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	TaskType    string
	DueDate     *time.Time
	AssignedTo  string
	AssignedBy  string
	BrandID     *uint64
	CompanyName string
}

// UpdateTaskInput represents input for updating a task. Nil fields are left untouched.
type UpdateTaskInput struct {
	Title             *string
	Description       *string
	Status            *models.TaskStatus
	Priority          *models.TaskPriority
	TaskType          *string
	DueDate           *time.Time
	AssignedTo        *string
	CompanyName       *string
	CompletedApproval *bool
	Note              string
	RequestRecheck    bool
}

// ListTasks returns the tasks visible to the identity, newest first
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	if input.Identity == nil {
		return nil, 0, ErrUnauthorized
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, 0, ErrInvalidTaskStatus
	}
	if input.Priority != nil && !input.Priority.IsValid() {
		return nil, 0, ErrInvalidTaskPriority
	}

	filter := repository.TaskFilter{
		Status:   input.Status,
		Priority: input.Priority,
		BrandID:  input.BrandID,
		Page:     input.Page,
		PageSize: input.PageSize,
	}
	if !input.Identity.IsAdmin() {
		filter.ParticipantEmail = utils.NormalizeEmail(input.Identity.Email)
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

func (s *TaskService) findTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// GetTask returns a task the identity can access
func (s *TaskService) GetTask(taskID uint64, identity *models.Identity) (*models.Task, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}
	if !TaskAccessible(task, identity) {
		return nil, ErrTaskForbidden
	}
	return task, nil
}

// TaskRelations lists the comment and history ids of a task in insertion order.
func (s *TaskService) TaskRelations(taskID uint64) (commentIDs, historyIDs []uint64, err error) {
	commentIDs, err = s.commentRepo.IDsByTask(taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list comment ids: %w", err)
	}
	historyIDs, err = s.historyRepo.IDsByTask(taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list history ids: %w", err)
	}
	return commentIDs, historyIDs, nil
}

// CreateTask validates input and creates a task assigned by the identity
func (s *TaskService) CreateTask(input CreateTaskInput, identity *models.Identity) (*models.Task, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	assignedTo := utils.NormalizeEmail(input.AssignedTo)
	if assignedTo == "" {
		return nil, ErrAssigneeRequired
	}
	if input.DueDate == nil || input.DueDate.IsZero() {
		return nil, ErrDueDateRequired
	}

	if input.Status == "" {
		input.Status = models.TaskStatusPending
	}
	if !input.Status.IsValid() {
		return nil, ErrInvalidTaskStatus
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.IsValid() {
		return nil, ErrInvalidTaskPriority
	}
	taskType := strings.TrimSpace(input.TaskType)
	if taskType == "" {
		taskType = constants.DefaultTaskType
	}
	assignedBy := utils.NormalizeEmail(input.AssignedBy)
	if assignedBy == "" {
		assignedBy = identity.Email
	}

	if input.BrandID != nil {
		brand, err := s.brandRepo.FindByID(*input.BrandID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrBrandNotFound
			}
			return nil, fmt.Errorf("failed to find brand: %w", err)
		}
		if !BrandAccessible(brand, identity) {
			return nil, ErrBrandForbidden
		}
	}

	if _, err := s.userRepo.FindByEmail(assignedTo); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("task assigned to unknown user", "assigned_to", assignedTo, "user_id", identity.ID)
		} else {
			return nil, fmt.Errorf("failed to look up assignee: %w", err)
		}
	}

	task := &models.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		TaskType:    taskType,
		DueDate:     *input.DueDate,
		AssignedTo:  assignedTo,
		AssignedBy:  assignedBy,
		BrandID:     input.BrandID,
		CompanyName: strings.TrimSpace(input.CompanyName),
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// buildTaskUpdates validates input against prev and returns the column map.
func buildTaskUpdates(prev *models.Task, input UpdateTaskInput) (map[string]any, error) {
	updates := make(map[string]any)

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, ErrInvalidTaskStatus
		}
		updates["status"] = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, ErrInvalidTaskPriority
		}
		updates["priority"] = *input.Priority
	}
	if input.TaskType != nil {
		taskType := strings.TrimSpace(*input.TaskType)
		if taskType == "" {
			taskType = constants.DefaultTaskType
		}
		updates["task_type"] = taskType
	}
	if input.DueDate != nil {
		if input.DueDate.IsZero() {
			return nil, ErrDueDateRequired
		}
		updates["due_date"] = *input.DueDate
	}
	if input.AssignedTo != nil {
		assignedTo := utils.NormalizeEmail(*input.AssignedTo)
		if assignedTo == "" {
			return nil, ErrAssigneeRequired
		}
		updates["assigned_to"] = assignedTo
	}
	if input.CompanyName != nil {
		updates["company_name"] = strings.TrimSpace(*input.CompanyName)
	}
	if input.CompletedApproval != nil {
		if prev.CompletedApproval && !*input.CompletedApproval {
			return nil, ErrApprovalIrreversible
		}
		updates["completed_approval"] = *input.CompletedApproval
	}

	return updates, nil
}

// UpdateTask applies a partial update and records the resulting history.
// A failing history write is reported but never fails the update.
func (s *TaskService) UpdateTask(taskID uint64, input UpdateTaskInput, identity *models.Identity) (*models.Task, error) {
	prev, err := s.GetTask(taskID, identity)
	if err != nil {
		return nil, err
	}

	updates, err := buildTaskUpdates(prev, input)
	if err != nil {
		return nil, err
	}
	// Granting approval here follows the same rule as ApproveTask.
	if input.CompletedApproval != nil && *input.CompletedApproval && !prev.CompletedApproval {
		if !canApproveTask(prev, identity) {
			return nil, ErrNotTaskAssigner
		}
		updates["status"] = models.TaskStatusCompleted
	}
	if len(updates) == 0 {
		return prev, nil
	}

	if err := s.taskRepo.UpdateFields(taskID, updates); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	updated, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.recorder.RecordUpdate(prev, updated, strings.TrimSpace(input.Note), input.RequestRecheck, identity); err != nil {
		reportAuditFailure(taskID, "update_task", identity, err)
	}

	return updated, nil
}

// canApproveTask reports whether identity may grant the completion approval.
func canApproveTask(task *models.Task, identity *models.Identity) bool {
	return identity.IsAdmin() || utils.SameEmail(identity.Email, task.AssignedBy)
}

// ApproveTask sets the completion approval gate. Granting also completes the
// task; once granted the approval cannot be cleared.
func (s *TaskService) ApproveTask(taskID uint64, approved bool, identity *models.Identity) (*models.Task, error) {
	task, err := s.GetTask(taskID, identity)
	if err != nil {
		return nil, err
	}
	if !canApproveTask(task, identity) {
		return nil, ErrNotTaskAssigner
	}

	if !approved {
		if task.CompletedApproval {
			return nil, ErrApprovalIrreversible
		}
		return task, nil
	}

	previousStatus := task.Status
	if err := s.taskRepo.UpdateFields(taskID, map[string]any{
		"completed_approval": true,
		"status":             models.TaskStatusCompleted,
	}); err != nil {
		return nil, fmt.Errorf("failed to approve task: %w", err)
	}

	updated, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.recorder.RecordPermanentApproval(updated, previousStatus, identity); err != nil {
		reportAuditFailure(taskID, string(models.TaskActionAssignerPermanentApproved), identity, err)
	}

	return updated, nil
}

// DeleteTask deletes a task with its comments and history
func (s *TaskService) DeleteTask(taskID uint64, identity *models.Identity) error {
	if _, err := s.GetTask(taskID, identity); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// GetTaskHistory returns the audit log of a task, newest first
func (s *TaskService) GetTaskHistory(taskID uint64, identity *models.Identity) ([]models.TaskHistory, error) {
	if _, err := s.GetTask(taskID, identity); err != nil {
		return nil, err
	}
	return s.recorder.History(taskID)
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text string
}

// GenerateTasks uses AI to suggest tasks from text. Nothing is persisted.
func (s *TaskService) GenerateTasks(ctx context.Context, input GenerateTasksInput) ([]GeneratedTask, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		aiTasks = aiTasks[:constants.MaxAIGeneratedTasks]
	}

	return sanitizeGeneratedTasks(aiTasks, time.Now())
}

func sanitizeGeneratedTasks(aiTasks []GeneratedTask, now time.Time) ([]GeneratedTask, error) {
	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := now.Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		aiTask.Title = strings.TrimSpace(aiTask.Title)
		if aiTask.Title == "" {
			continue
		}

		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}
		if !aiTask.Priority.IsValid() {
			aiTask.Priority = models.TaskPriorityMedium
		}

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}
