package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/brand-task-api/internal/models"
)

func statusPtr(s models.TaskStatus) *models.TaskStatus { return &s }

func boolPtr(b bool) *bool { return &b }

func TestTaskAccessible(t *testing.T) {
	task := &models.Task{AssignedTo: "worker@example.com", AssignedBy: "boss@example.com"}

	assert.True(t, TaskAccessible(task, &models.Identity{Email: "WORKER@example.com"}))
	assert.True(t, TaskAccessible(task, &models.Identity{Email: "boss@example.com"}))
	assert.True(t, TaskAccessible(task, &models.Identity{Email: "root@example.com", Role: models.RoleAdmin}))
	assert.False(t, TaskAccessible(task, &models.Identity{Email: "other@example.com"}))
	assert.False(t, TaskAccessible(task, nil))
}

func TestTaskService_CreateTask(t *testing.T) {
	env := setupServiceTestEnv(t)
	boss := env.createUser(t, "Boss", "boss@example.com", models.RoleUser)
	due := time.Now().Add(24 * time.Hour)

	task, err := env.tasks.CreateTask(CreateTaskInput{
		Title:      "  Write copy  ",
		AssignedTo: " Nobody@Example.com ",
		DueDate:    &due,
	}, boss)
	require.NoError(t, err)
	assert.Equal(t, "Write copy", task.Title)
	assert.Equal(t, "nobody@example.com", task.AssignedTo)
	assert.Equal(t, "boss@example.com", task.AssignedBy)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)
	assert.Equal(t, "regular", task.TaskType)
	assert.False(t, task.CompletedApproval)
}

func TestTaskService_CreateTaskValidation(t *testing.T) {
	env := setupServiceTestEnv(t)
	boss := env.createUser(t, "Boss", "boss@example.com", models.RoleUser)
	due := time.Now().Add(24 * time.Hour)
	missingBrand := uint64(404)

	tests := []struct {
		name     string
		input    CreateTaskInput
		identity *models.Identity
		wantErr  error
	}{
		{"no identity", CreateTaskInput{Title: "x", AssignedTo: "a@example.com", DueDate: &due}, nil, ErrUnauthorized},
		{"no title", CreateTaskInput{Title: " ", AssignedTo: "a@example.com", DueDate: &due}, boss, ErrTitleRequired},
		{"no assignee", CreateTaskInput{Title: "x", DueDate: &due}, boss, ErrAssigneeRequired},
		{"no due date", CreateTaskInput{Title: "x", AssignedTo: "a@example.com"}, boss, ErrDueDateRequired},
		{"bad status", CreateTaskInput{Title: "x", AssignedTo: "a@example.com", DueDate: &due, Status: "done"}, boss, ErrInvalidTaskStatus},
		{"bad priority", CreateTaskInput{Title: "x", AssignedTo: "a@example.com", DueDate: &due, Priority: "urgent"}, boss, ErrInvalidTaskPriority},
		{"unknown brand", CreateTaskInput{Title: "x", AssignedTo: "a@example.com", DueDate: &due, BrandID: &missingBrand}, boss, ErrBrandNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tasks.CreateTask(tt.input, tt.identity)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTaskService_CreateTaskInForeignBrand(t *testing.T) {
	env := setupServiceTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@example.com", models.RoleUser)
	outsider := env.createUser(t, "Out", "out@example.com", models.RoleUser)

	created, err := env.brands.CreateOrUpdateBrand(BrandInput{Name: "Acme"}, owner)
	require.NoError(t, err)

	due := time.Now().Add(time.Hour)
	_, err = env.tasks.CreateTask(CreateTaskInput{
		Title:      "x",
		AssignedTo: "a@example.com",
		DueDate:    &due,
		BrandID:    &created.Brand.ID,
	}, outsider)
	assert.ErrorIs(t, err, ErrBrandForbidden)
}

func TestTaskService_UpdateTaskRecordsStatusChange(t *testing.T) {
	env := setupServiceTestEnv(t)
	boss := env.createUser(t, "Boss", "boss@example.com", models.RoleUser)
	worker := env.createUser(t, "Worker", "worker@example.com", models.RoleUser)
	task := env.createTask(t, boss, worker.Email, nil)

	updated, err := env.tasks.UpdateTask(task.ID, UpdateTaskInput{
		Status:         statusPtr(models.TaskStatusCompleted),
		Note:           " done ",
		RequestRecheck: true,
	}, worker)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, updated.Status)
	assert.False(t, updated.CompletedApproval)

	history, err := env.tasks.GetTaskHistory(task.ID, worker)
	require.NoError(t, err)
	require.Len(t, history, 1)
	entry := history[0]
	assert.Equal(t, models.TaskActionStatusChanged, entry.Action)
	require.NotNil(t, entry.OldStatus)
	require.NotNil(t, entry.NewStatus)
	assert.Equal(t, models.TaskStatusPending, *entry.OldStatus)
	assert.Equal(t, models.TaskStatusCompleted, *entry.NewStatus)
	assert.Equal(t, "done", entry.Note)
	assert.True(t, entry.RecheckRequested)
	assert.Equal(t, worker.Email, entry.Actor.Email)
}

func TestTaskService_UpdateTaskWithoutChangesWritesNoHistory(t *testing.T) {
	env := setupServiceTestEnv(t)
	boss := env.createUser(t, "Boss", "boss@example.com", models.RoleUser)
	task := env.createTask(t, boss, "worker@example.com", nil)

	title := "New title"
	updated, err := env.tasks.UpdateTask(task.ID, UpdateTaskInput{Title: &title}, boss)
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)

	history, err := env.tasks.GetTaskHistory(task.ID, boss)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTaskService_UpdateTaskSurvivesHistoryFailure(t *testing.T) {
	env := setupServiceTestEnv(t)
	boss := env.createUser(t, "Boss", "boss@example.com", models.RoleUser)
	task := env.createTask(t, boss, "worker@example.com", nil)

	failing := &failingHistoryRepository{TaskHistoryRepository: env.historyRepo, appendErr: errHistoryStoreDown}
	svc := NewTaskService(env.taskRepo, env.commentRepo, env.historyRepo, env.userRepo, env.brandRepo,
		NewAuditRecorder(failing), nil)

	updated, err := svc.UpdateTask(task.ID, UpdateTaskInput{Status: statusPtr(models.TaskStatusCompleted)}, boss)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, updated.Status)
	assert.Equal(t, 1, failing.appends)

	stored, err := env.taskRepo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, stored.Status)

	history, err := env.historyRepo.ListByTask(task.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTaskService_UpdateTaskAccessAndValidation(t *testing.T) {
	env := setupServiceTestEnv(t)
	boss := env.createUser(t, "Boss", "boss@example.com", models.RoleUser)
	stranger := env.createUser(t, "Stranger", "stranger@example.com", models.RoleUser)
	task := env.createTask(t, boss, "worker@example.com", nil)

	_, err := env.tasks.UpdateTask(task.ID, UpdateTaskInput{Status: statusPtr(models.TaskStatusCompleted)}, stranger)
	assert.ErrorIs(t, err, ErrTaskForbidden)

	_, err = env.tasks.UpdateTask(task.ID, UpdateTaskInput{Status: statusPtr("archived")}, boss)
	assert.ErrorIs(t, err, ErrInvalidTaskStatus)

	empty := ""
	_, err = env.tasks.UpdateTask(task.ID, UpdateTaskInput{Title: &empty}, boss)
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = env.tasks.UpdateTask(9999, UpdateTaskInput{}, boss)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskService_ApproveTask(t *testing.T) {
	env := setupServiceTestEnv(t)
	boss := env.createUser(t, "Boss", "boss@example.com", models.RoleUser)
	worker := env.createUser(t, "Worker", "worker@example.com", models.RoleUser)
	task := env.createTask(t, boss, worker.Email, nil)

	_, err := env.tasks.ApproveTask(task.ID, true, worker)
	assert.ErrorIs(t, err, ErrNotTaskAssigner)

	approved, err := env.tasks.ApproveTask(task.ID, true, boss)
	require.NoError(t, err)
	assert.True(t, approved.CompletedApproval)
	assert.Equal(t, models.TaskStatusCompleted, approved.Status)

	history, err := env.tasks.GetTaskHistory(task.ID, boss)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.TaskActionAssignerPermanentApproved, history[0].Action)
	assert.Equal(t, models.TaskStatusPending, *history[0].OldStatus)
	assert.Equal(t, models.TaskStatusCompleted, *history[0].NewStatus)

	_, err = env.tasks.ApproveTask(task.ID, false, boss)
	assert.ErrorIs(t, err, ErrApprovalIrreversible)

	_, err = env.tasks.UpdateTask(task.ID, UpdateTaskInput{CompletedApproval: boolPtr(false)}, boss)
	assert.ErrorIs(t, err, ErrApprovalIrreversible)
}

func TestTaskService_UpdateTaskApprovalRequiresAssigner(t *testing.T) {
	env := setupServiceTestEnv(t)
	boss := env.createUser(t, "Boss", "boss@example.com", models.RoleUser)
	worker := env.createUser(t, "Worker", "worker@example.com", models.RoleUser)
	task := env.createTask(t, boss, worker.Email, nil)

	_, err := env.tasks.UpdateTask(task.ID, UpdateTaskInput{CompletedApproval: boolPtr(true)}, worker)
	assert.ErrorIs(t, err, ErrNotTaskAssigner)

	unchanged, err := env.tasks.GetTask(task.ID, boss)
	require.NoError(t, err)
	assert.False(t, unchanged.CompletedApproval)
	assert.Equal(t, models.TaskStatusPending, unchanged.Status)

	history, err := env.tasks.GetTaskHistory(task.ID, boss)
	require.NoError(t, err)
	assert.Empty(t, history)

	// Declining an unapproved task changes nothing.
	_, err = env.tasks.ApproveTask(task.ID, false, boss)
	require.NoError(t, err)

	approved, err := env.tasks.UpdateTask(task.ID, UpdateTaskInput{
		Status:            statusPtr(models.TaskStatusInProgress),
		CompletedApproval: boolPtr(true),
	}, boss)
	require.NoError(t, err)
	assert.True(t, approved.CompletedApproval)
	assert.Equal(t, models.TaskStatusCompleted, approved.Status)

	history, err = env.tasks.GetTaskHistory(task.ID, boss)
	require.NoError(t, err)
	require.Len(t, history, 2)
	actions := []models.TaskAction{history[0].Action, history[1].Action}
	assert.ElementsMatch(t, []models.TaskAction{models.TaskActionStatusChanged, models.TaskActionApprovalGranted}, actions)
	for _, entry := range history {
		assert.Equal(t, boss.Email, entry.Actor.Email)
	}
}

func TestTaskService_UpdateTaskApprovalByAdmin(t *testing.T) {
	env := setupServiceTestEnv(t)
	boss := env.createUser(t, "Boss", "boss@example.com", models.RoleUser)
	root := env.createUser(t, "Root", "root@example.com", models.RoleAdmin)
	task := env.createTask(t, boss, "worker@example.com", nil)

	approved, err := env.tasks.UpdateTask(task.ID, UpdateTaskInput{CompletedApproval: boolPtr(true)}, root)
	require.NoError(t, err)
	assert.True(t, approved.CompletedApproval)
	assert.Equal(t, models.TaskStatusCompleted, approved.Status)
}

func TestTaskService_OverdueFollowsStatus(t *testing.T) {
	env := setupServiceTestEnv(t)
	boss := env.createUser(t, "Boss", "boss@example.com", models.RoleUser)
	past := time.Now().Add(-48 * time.Hour)

	task, err := env.tasks.CreateTask(CreateTaskInput{
		Title:      "Late",
		AssignedTo: "worker@example.com",
		DueDate:    &past,
	}, boss)
	require.NoError(t, err)
	assert.True(t, task.IsOverdue(time.Now()))

	updated, err := env.tasks.UpdateTask(task.ID, UpdateTaskInput{Status: statusPtr(models.TaskStatusCompleted)}, boss)
	require.NoError(t, err)
	assert.True(t, updated.DueDate.Equal(task.DueDate))
	assert.False(t, updated.IsOverdue(time.Now()))
}

func TestTaskService_ListTasks(t *testing.T) {
	env := setupServiceTestEnv(t)
	boss := env.createUser(t, "Boss", "boss@example.com", models.RoleUser)
	worker := env.createUser(t, "Worker", "worker@example.com", models.RoleUser)
	admin := env.createUser(t, "Admin", "admin@example.com", models.RoleAdmin)

	env.createTask(t, boss, worker.Email, nil)
	env.createTask(t, boss, "someone@example.com", nil)
	other := env.createTask(t, worker, "someone@example.com", nil)

	tasks, total, err := env.tasks.ListTasks(ListTasksInput{Identity: worker})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, tasks, 2)
	assert.Equal(t, other.ID, tasks[0].ID)

	_, total, err = env.tasks.ListTasks(ListTasksInput{Identity: admin})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	tasks, total, err = env.tasks.ListTasks(ListTasksInput{Identity: boss, Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, tasks, 1)

	_, _, err = env.tasks.ListTasks(ListTasksInput{Identity: boss, Status: statusPtr("nope")})
	assert.ErrorIs(t, err, ErrInvalidTaskStatus)

	_, _, err = env.tasks.ListTasks(ListTasksInput{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTaskService_DeleteTaskCascades(t *testing.T) {
	env := setupServiceTestEnv(t)
	boss := env.createUser(t, "Boss", "boss@example.com", models.RoleUser)
	stranger := env.createUser(t, "Stranger", "stranger@example.com", models.RoleUser)
	task := env.createTask(t, boss, "worker@example.com", nil)

	_, err := env.comments.AddComment(task.ID, "hello", boss)
	require.NoError(t, err)
	_, err = env.tasks.UpdateTask(task.ID, UpdateTaskInput{Status: statusPtr(models.TaskStatusInProgress)}, boss)
	require.NoError(t, err)

	commentIDs, historyIDs, err := env.tasks.TaskRelations(task.ID)
	require.NoError(t, err)
	assert.Len(t, commentIDs, 1)
	assert.Len(t, historyIDs, 1)

	assert.ErrorIs(t, env.tasks.DeleteTask(task.ID, stranger), ErrTaskForbidden)
	require.NoError(t, env.tasks.DeleteTask(task.ID, boss))

	_, err = env.tasks.GetTask(task.ID, boss)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	commentIDs, historyIDs, err = env.tasks.TaskRelations(task.ID)
	require.NoError(t, err)
	assert.Empty(t, commentIDs)
	assert.Empty(t, historyIDs)
}

func TestTaskService_GenerateTasksWithoutAI(t *testing.T) {
	env := setupServiceTestEnv(t)

	_, err := env.tasks.GenerateTasks(context.Background(), GenerateTasksInput{Text: "ship it"})
	assert.ErrorIs(t, err, ErrAIServiceNotConfigured)
}

func TestSanitizeGeneratedTasks(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-72 * time.Hour)
	soon := now.Add(24 * time.Hour)

	tasks, err := sanitizeGeneratedTasks([]GeneratedTask{
		{Title: "  Call vendor ", Priority: "high", DueDate: &soon},
		{Title: "   "},
		{Title: "Old", Priority: "urgent", DueDate: &stale},
	}, now)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Call vendor", tasks[0].Title)
	assert.Equal(t, models.TaskPriorityHigh, tasks[0].Priority)
	assert.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, models.TaskPriorityMedium, tasks[1].Priority)
	assert.Nil(t, tasks[1].DueDate)

	_, err = sanitizeGeneratedTasks([]GeneratedTask{{Title: ""}}, now)
	assert.ErrorIs(t, err, ErrAINoValidTasks)
}

func TestParseGeneratedTasks(t *testing.T) {
	tasks, err := parseGeneratedTasks("```json\n[{\"title\":\"Book venue\",\"priority\":\"low\",\"due_date\":null}]\n```")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Book venue", tasks[0].Title)
	assert.Nil(t, tasks[0].DueDate)

	_, err = parseGeneratedTasks("not json")
	assert.Error(t, err)
}
