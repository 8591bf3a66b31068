package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/brand-task-api/internal/dto"
	apierrors "github.com/yukikurage/brand-task-api/internal/errors"
	"github.com/yukikurage/brand-task-api/internal/middleware"
	"github.com/yukikurage/brand-task-api/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

// AddComment handles POST /tasks/:id/comments
func (h *CommentHandler) AddComment(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.AddComment(task.ID, req.Content, identity)
	if err != nil {
		respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.OKWithMessage("Comment added successfully", dto.ToCommentDTO(*comment)))
}

// ListComments handles GET /tasks/:id/comments
func (h *CommentHandler) ListComments(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	comments, err := h.commentService.ListComments(task.ID, identity)
	if err != nil {
		respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.ToCommentDTOs(comments)))
}

// DeleteComment handles DELETE /tasks/:id/comments/:commentId
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	commentID, err := strconv.ParseUint(c.Param("commentId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid comment ID")
		return
	}

	if err := h.commentService.DeleteComment(task.ID, commentID, identity); err != nil {
		respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKWithMessage("Comment deleted successfully", nil))
}

// LegacyCommentHandler serves /comments/addComment, /comments/getComments
// and /comments/deleteComment. Responses keep string ids and report
// failures as {success:false, msg}.
type LegacyCommentHandler struct {
	commentService *services.CommentService
}

func NewLegacyCommentHandler(commentService *services.CommentService) *LegacyCommentHandler {
	return &LegacyCommentHandler{commentService: commentService}
}

func legacyError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "msg": msg})
}

func legacyStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrTaskNotFound), errors.Is(err, services.ErrCommentNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrTaskForbidden), errors.Is(err, services.ErrCommentForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrCommentContentRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// legacyFailure maps a service error onto the legacy shape. Internal errors
// are logged and replaced with fallback.
func legacyFailure(c *gin.Context, err error, fallback string) {
	status := legacyStatus(err)
	if status != http.StatusInternalServerError {
		legacyError(c, status, err.Error())
		return
	}
	slog.Error(fallback,
		"request_id", middleware.GetRequestID(c),
		"path", c.FullPath(),
		"error", err.Error(),
	)
	legacyError(c, status, fallback)
}

func legacyTaskID(c *gin.Context) (uint64, bool) {
	taskID, err := strconv.ParseUint(c.Param("taskId"), 10, 64)
	if err != nil {
		legacyError(c, http.StatusBadRequest, "Invalid task ID")
		return 0, false
	}
	return taskID, true
}

func (h *LegacyCommentHandler) AddComment(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	taskID, ok := legacyTaskID(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		legacyError(c, http.StatusBadRequest, "Comment content is required")
		return
	}

	comment, err := h.commentService.AddComment(taskID, req.Content, identity)
	if err != nil {
		legacyFailure(c, err, "Failed to add comment")
		return
	}
	c.JSON(http.StatusCreated, dto.OKWithMessage("Comment added successfully", dto.ToLegacyCommentDTO(*comment)))
}

func (h *LegacyCommentHandler) GetComments(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	taskID, ok := legacyTaskID(c)
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(taskID, identity)
	if err != nil {
		legacyFailure(c, err, "Failed to fetch comments")
		return
	}
	c.JSON(http.StatusOK, dto.Response{
		Success: true,
		Message: "Comments fetched successfully",
		Data:    dto.ToLegacyCommentDTOs(comments),
	})
}

func (h *LegacyCommentHandler) DeleteComment(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	taskID, ok := legacyTaskID(c)
	if !ok {
		return
	}
	commentID, err := strconv.ParseUint(c.Param("commentId"), 10, 64)
	if err != nil {
		legacyError(c, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	if err := h.commentService.DeleteComment(taskID, commentID, identity); err != nil {
		legacyFailure(c, err, "Failed to delete comment")
		return
	}
	c.JSON(http.StatusOK, dto.OKWithMessage("Comment deleted successfully", nil))
}
