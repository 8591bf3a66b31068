package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/brand-task-api/internal/constants"
	apierrors "github.com/yukikurage/brand-task-api/internal/errors"
	"github.com/yukikurage/brand-task-api/internal/middleware"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/services"
)

// currentIdentity returns the acting identity or writes a 401.
func currentIdentity(c *gin.Context) (*models.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return nil, false
	}
	return identity, true
}

func respondInternal(c *gin.Context, message string, err error) {
	slog.Error(message,
		"request_id", middleware.GetRequestID(c),
		"path", c.FullPath(),
		"error", err.Error(),
	)
	apierrors.InternalErrorWithCause(c, message, err)
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrEmailRequired),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrNoOTPRequested),
		errors.Is(err, services.ErrOTPExpired),
		errors.Is(err, services.ErrInvalidOTP):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrUnauthorized):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrResetNotVerified),
		errors.Is(err, services.ErrCannotDeleteSelf):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTooManyOTPRequests):
		apierrors.TooManyRequests(c, err.Error())
	default:
		respondInternal(c, "Authentication request failed", err)
	}
}

func respondBrandError(c *gin.Context, err error) {
	var depErr *services.DependentTasksError
	switch {
	case errors.As(err, &depErr):
		apierrors.ConflictWithDetails(c, depErr.Error(), gin.H{"task_count": depErr.Count})
	case errors.Is(err, services.ErrUnauthorized):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrBrandNotFound),
		errors.Is(err, services.ErrCollaboratorNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrBrandForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrBrandNameRequired),
		errors.Is(err, services.ErrInvalidBrandStatus),
		errors.Is(err, services.ErrEmptyBulkPayload),
		errors.Is(err, services.ErrInvalidCollaboratorRole),
		errors.Is(err, services.ErrInvalidInviteAction),
		errors.Is(err, services.ErrEmailRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrBrandExists),
		errors.Is(err, services.ErrCollaboratorExists),
		errors.Is(err, services.ErrInviteNotPending):
		apierrors.Conflict(c, err.Error())
	default:
		respondInternal(c, "Brand request failed", err)
	}
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrBrandNotFound),
		errors.Is(err, services.ErrCommentNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTaskForbidden),
		errors.Is(err, services.ErrBrandForbidden),
		errors.Is(err, services.ErrNotTaskAssigner),
		errors.Is(err, services.ErrCommentForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrAssigneeRequired),
		errors.Is(err, services.ErrDueDateRequired),
		errors.Is(err, services.ErrInvalidTaskStatus),
		errors.Is(err, services.ErrInvalidTaskPriority),
		errors.Is(err, services.ErrCommentContentRequired),
		errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrApprovalIrreversible):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")
	default:
		respondInternal(c, "Task request failed", err)
	}
}
