package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/brand-task-api/internal/models"
)

func TestDeriveTaskHistory(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	actor := models.Actor{UserID: 7, Name: "Ana", Email: "ana@example.com", Role: models.RoleUser}

	tests := []struct {
		name         string
		prev         models.Task
		updated      models.Task
		recheck      bool
		wantActions  []models.TaskAction
		wantRecheck  bool
		descContains string
	}{
		{
			name:        "no change",
			prev:        models.Task{ID: 1, Status: models.TaskStatusPending},
			updated:     models.Task{ID: 1, Status: models.TaskStatusPending},
			wantActions: nil,
		},
		{
			name:         "status change",
			prev:         models.Task{ID: 1, Status: models.TaskStatusPending},
			updated:      models.Task{ID: 1, Status: models.TaskStatusCompleted},
			wantActions:  []models.TaskAction{models.TaskActionStatusChanged},
			descContains: "Status changed from pending to completed",
		},
		{
			name:         "recheck on completion",
			prev:         models.Task{ID: 1, Status: models.TaskStatusInProgress},
			updated:      models.Task{ID: 1, Status: models.TaskStatusCompleted},
			recheck:      true,
			wantActions:  []models.TaskAction{models.TaskActionStatusChanged},
			wantRecheck:  true,
			descContains: "recheck requested from assigner",
		},
		{
			name:        "recheck ignored without completion",
			prev:        models.Task{ID: 1, Status: models.TaskStatusPending},
			updated:     models.Task{ID: 1, Status: models.TaskStatusInProgress},
			recheck:     true,
			wantActions: []models.TaskAction{models.TaskActionStatusChanged},
		},
		{
			name:        "status then approval",
			prev:        models.Task{ID: 1, Status: models.TaskStatusPending},
			updated:     models.Task{ID: 1, Status: models.TaskStatusCompleted, CompletedApproval: true},
			wantActions: []models.TaskAction{models.TaskActionStatusChanged, models.TaskActionApprovalGranted},
		},
		{
			name:        "approval revoked",
			prev:        models.Task{ID: 1, Status: models.TaskStatusCompleted, CompletedApproval: true},
			updated:     models.Task{ID: 1, Status: models.TaskStatusCompleted},
			wantActions: []models.TaskAction{models.TaskActionApprovalRevoked},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prevCopy, updatedCopy := tt.prev, tt.updated
			entries := DeriveTaskHistory(&tt.prev, &tt.updated, "note", tt.recheck, actor, now)

			var actions []models.TaskAction
			for _, e := range entries {
				actions = append(actions, e.Action)
				assert.Equal(t, actor, e.Actor)
				assert.Equal(t, now, e.Timestamp)
				assert.Equal(t, "note", e.Note)
			}
			assert.Equal(t, tt.wantActions, actions)
			assert.Equal(t, prevCopy, tt.prev)
			assert.Equal(t, updatedCopy, tt.updated)

			if len(entries) > 0 && entries[0].Action == models.TaskActionStatusChanged {
				assert.Equal(t, tt.wantRecheck, entries[0].RecheckRequested)
				require.NotNil(t, entries[0].OldStatus)
				require.NotNil(t, entries[0].NewStatus)
				assert.Equal(t, tt.prev.Status, *entries[0].OldStatus)
				assert.Equal(t, tt.updated.Status, *entries[0].NewStatus)
			}
			if tt.descContains != "" {
				assert.Contains(t, entries[0].Description, tt.descContains)
			}
		})
	}
}

func TestAuditRecorder_RecordUpdateStopsAtFailure(t *testing.T) {
	repo := &failingHistoryRepository{appendErr: errHistoryStoreDown}
	recorder := NewAuditRecorder(repo)
	identity := &models.Identity{ID: 1, Email: "ana@example.com"}

	prev := &models.Task{ID: 3, Status: models.TaskStatusPending}
	updated := &models.Task{ID: 3, Status: models.TaskStatusCompleted, CompletedApproval: true}

	written, err := recorder.RecordUpdate(prev, updated, "", false, identity)
	require.ErrorIs(t, err, errHistoryStoreDown)
	assert.Empty(t, written)
	assert.Equal(t, 1, repo.appends)
}
