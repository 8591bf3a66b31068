package services

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/repository"
)

// DeriveTaskHistory computes the audit rows implied by moving a task from
// prev to updated. The status entry always precedes the approval entry.
// Neither task is modified.
func DeriveTaskHistory(prev, updated *models.Task, note string, requestRecheck bool, actor models.Actor, now time.Time) []models.TaskHistory {
	var entries []models.TaskHistory

	if prev.Status != updated.Status {
		oldStatus, newStatus := prev.Status, updated.Status
		entry := models.TaskHistory{
			TaskID:      updated.ID,
			Action:      models.TaskActionStatusChanged,
			Description: fmt.Sprintf("Status changed from %s to %s", oldStatus, newStatus),
			OldStatus:   &oldStatus,
			NewStatus:   &newStatus,
			Note:        note,
			Actor:       actor,
			Timestamp:   now,
		}
		if requestRecheck && newStatus == models.TaskStatusCompleted {
			entry.RecheckRequested = true
			entry.Description += " (recheck requested from assigner)"
		}
		entries = append(entries, entry)
	}

	if prev.CompletedApproval != updated.CompletedApproval {
		entry := models.TaskHistory{
			TaskID:      updated.ID,
			Action:      models.TaskActionApprovalGranted,
			Description: "Completion approval granted",
			Note:        note,
			Actor:       actor,
			Timestamp:   now,
		}
		if !updated.CompletedApproval {
			entry.Action = models.TaskActionApprovalRevoked
			entry.Description = "Completion approval revoked"
		}
		entries = append(entries, entry)
	}

	return entries
}

// AuditRecorder appends task history rows.
type AuditRecorder struct {
	historyRepo repository.TaskHistoryRepository
	now         func() time.Time
}

// NewAuditRecorder creates a recorder that stamps entries with the wall clock.
func NewAuditRecorder(historyRepo repository.TaskHistoryRepository) *AuditRecorder {
	return &AuditRecorder{
		historyRepo: historyRepo,
		now:         time.Now,
	}
}

// RecordUpdate derives and appends the history for a task update. Entries are
// written in order; on failure the rows already written stay.
func (r *AuditRecorder) RecordUpdate(prev, updated *models.Task, note string, requestRecheck bool, actor *models.Identity) ([]models.TaskHistory, error) {
	entries := DeriveTaskHistory(prev, updated, note, requestRecheck, actor.Actor(), r.now())
	for i := range entries {
		if err := r.historyRepo.Append(&entries[i]); err != nil {
			return entries[:i], fmt.Errorf("failed to append %s history: %w", entries[i].Action, err)
		}
	}
	return entries, nil
}

// RecordPermanentApproval appends the assigner approval entry.
func (r *AuditRecorder) RecordPermanentApproval(task *models.Task, previousStatus models.TaskStatus, actor *models.Identity) (*models.TaskHistory, error) {
	newStatus := task.Status
	entry := &models.TaskHistory{
		TaskID:      task.ID,
		Action:      models.TaskActionAssignerPermanentApproved,
		Description: "Task PERMANENTLY approved by Assigner",
		OldStatus:   &previousStatus,
		NewStatus:   &newStatus,
		Actor:       actor.Actor(),
		Timestamp:   r.now(),
	}
	if err := r.historyRepo.Append(entry); err != nil {
		return nil, fmt.Errorf("failed to append approval history: %w", err)
	}
	return entry, nil
}

// History returns the audit log of a task, newest first.
func (r *AuditRecorder) History(taskID uint64) ([]models.TaskHistory, error) {
	entries, err := r.historyRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task history: %w", err)
	}
	return entries, nil
}

// reportAuditFailure logs a history write failure without surfacing it to the caller.
func reportAuditFailure(taskID uint64, action string, actor *models.Identity, err error) {
	slog.Error("task history append failed",
		"task_id", taskID,
		"user_id", actor.ID,
		"action", action,
		"error", err.Error(),
	)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", "audit")
		scope.SetTag("task_id", strconv.FormatUint(taskID, 10))
		scope.SetTag("action", action)
		sentry.CaptureException(err)
	})
}
