package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/brand-task-api/internal/constants"
	apierrors "github.com/yukikurage/brand-task-api/internal/errors"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/services"
)

// RequireTaskAccess loads the task named by the :id parameter and checks
// that the caller is its assignee, its assigner or an admin.
func RequireTaskAccess(taskService *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			return
		}

		identity, ok := GetIdentity(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		task, err := taskService.GetTask(taskID, identity)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTaskNotFound):
				apierrors.NotFound(c, "Task not found")
			case errors.Is(err, services.ErrTaskForbidden):
				apierrors.Forbidden(c, err.Error())
			default:
				apierrors.InternalErrorWithCause(c, "Failed to load task", err)
			}
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (*models.Task, bool) {
	v, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := v.(*models.Task)
	return task, ok
}
