package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/brand-task-api/internal/dto"
	apierrors "github.com/yukikurage/brand-task-api/internal/errors"
	"github.com/yukikurage/brand-task-api/internal/middleware"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/services"
	"github.com/yukikurage/brand-task-api/internal/utils"
)

const generateTasksTimeout = 60 * time.Second

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the tasks the caller assigned or was assigned.
// Filters: status, priority, brand_id.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	input := services.ListTasksInput{Identity: identity}
	if s := c.Query("status"); s != "" {
		status := models.TaskStatus(s)
		input.Status = &status
	}
	if p := c.Query("priority"); p != "" {
		priority := models.TaskPriority(p)
		input.Priority = &priority
	}
	if b := c.Query("brand_id"); b != "" {
		brandID, err := strconv.ParseUint(b, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid brand_id")
			return
		}
		input.BrandID = &brandID
	}

	params := utils.GetPageParams(c)
	input.Page = params.Page
	input.PageSize = params.PageSize

	tasks, total, err := h.taskService.ListTasks(input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToTaskListResponse(tasks, params.Page, params.PageSize, total, time.Now())))
}

// GetTask returns a task with its comment and history ids.
// Task is already loaded by RequireTaskAccess middleware.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	commentIDs, historyIDs, err := h.taskService.TaskRelations(task.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	taskDTO := dto.ToTaskDTO(*task, time.Now())
	taskDTO.CommentIDs = commentIDs
	taskDTO.HistoryIDs = historyIDs
	c.JSON(http.StatusOK, dto.OK(taskDTO))
}

// CreateTask creates a new task assigned by the caller
func (h *TaskHandler) CreateTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required"`
		Description string              `json:"description"`
		Status      models.TaskStatus   `json:"status"`
		Priority    models.TaskPriority `json:"priority"`
		TaskType    string              `json:"task_type"`
		DueDate     *time.Time          `json:"due_date" binding:"required"`
		AssignedTo  string              `json:"assigned_to" binding:"required"`
		AssignedBy  string              `json:"assigned_by"`
		BrandID     *uint64             `json:"brand_id"`
		CompanyName string              `json:"company_name"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		TaskType:    req.TaskType,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
		AssignedBy:  req.AssignedBy,
		BrandID:     req.BrandID,
		CompanyName: req.CompanyName,
	}, identity)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.OKWithMessage("Task created successfully", dto.ToTaskDTO(*task, time.Now())))
}

// UpdateTask applies a partial update. id and created_at are not
// updatable and are ignored when sent.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	type UpdateTaskRequest struct {
		Title             *string              `json:"title"`
		Description       *string              `json:"description"`
		Status            *models.TaskStatus   `json:"status"`
		Priority          *models.TaskPriority `json:"priority"`
		TaskType          *string              `json:"task_type"`
		DueDate           *time.Time           `json:"due_date"`
		AssignedTo        *string              `json:"assigned_to"`
		CompanyName       *string              `json:"company_name"`
		CompletedApproval *bool                `json:"completed_approval"`
		Note              string               `json:"note"`
		RequestRecheck    bool                 `json:"request_recheck"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.taskService.UpdateTask(task.ID, services.UpdateTaskInput{
		Title:             req.Title,
		Description:       req.Description,
		Status:            req.Status,
		Priority:          req.Priority,
		TaskType:          req.TaskType,
		DueDate:           req.DueDate,
		AssignedTo:        req.AssignedTo,
		CompanyName:       req.CompanyName,
		CompletedApproval: req.CompletedApproval,
		Note:              req.Note,
		RequestRecheck:    req.RequestRecheck,
	}, identity)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("Task updated successfully", dto.ToTaskDTO(*updated, time.Now())))
}

// DeleteTask deletes a task with its comments and history
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	if err := h.taskService.DeleteTask(task.ID, identity); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("Task deleted successfully", nil))
}

// ApproveTask grants the completion approval
func (h *TaskHandler) ApproveTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	var req struct {
		CompletedApproval *bool `json:"completed_approval" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	approved, err := h.taskService.ApproveTask(task.ID, *req.CompletedApproval, identity)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("Task approval updated", dto.ToTaskDTO(*approved, time.Now())))
}

// GetTaskHistory returns the audit log, newest first
func (h *TaskHandler) GetTaskHistory(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	history, err := h.taskService.GetTaskHistory(task.ID, identity)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToTaskHistoryDTOs(history)))
}

// GenerateTasks suggests tasks from free text using AI. Nothing is saved.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	if _, ok := currentIdentity(c); !ok {
		return
	}

	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), generateTasksTimeout)
	defer cancel()

	generated, err := h.taskService.GenerateTasks(ctx, services.GenerateTasksInput{Text: req.Text})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	suggestions := make([]dto.GeneratedTaskDTO, len(generated))
	for i, g := range generated {
		suggestions[i] = dto.GeneratedTaskDTO{
			Title:       g.Title,
			Description: g.Description,
			Priority:    g.Priority,
			DueDate:     g.DueDate,
		}
	}
	c.JSON(http.StatusOK, dto.OK(gin.H{"tasks": suggestions}))
}
