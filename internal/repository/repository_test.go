package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/brand-task-api/internal/database"
	"github.com/yukikurage/brand-task-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

func seedTask(t *testing.T, repo TaskRepository, assignedTo, assignedBy string, brandID *uint64) *models.Task {
	t.Helper()
	task := &models.Task{
		Title:      "Task for " + assignedTo,
		Status:     models.TaskStatusPending,
		Priority:   models.TaskPriorityMedium,
		TaskType:   "regular",
		DueDate:    time.Now().Add(time.Hour),
		AssignedTo: assignedTo,
		AssignedBy: assignedBy,
		BrandID:    brandID,
	}
	require.NoError(t, repo.Create(task))
	return task
}

func TestTaskRepository_ListFilters(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewTaskRepository(db)
	brandID := uint64(5)

	seedTask(t, repo, "a@example.com", "boss@example.com", nil)
	seedTask(t, repo, "b@example.com", "a@example.com", &brandID)
	high := seedTask(t, repo, "c@example.com", "boss@example.com", &brandID)
	require.NoError(t, repo.UpdateFields(high.ID, map[string]any{"priority": models.TaskPriorityHigh}))

	tasks, total, err := repo.List(TaskFilter{ParticipantEmail: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, tasks, 2)

	_, total, err = repo.List(TaskFilter{BrandID: &brandID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	priority := models.TaskPriorityHigh
	tasks, total, err = repo.List(TaskFilter{Priority: &priority})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, high.ID, tasks[0].ID)

	tasks, total, err = repo.List(TaskFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, tasks, 1)

	count, err := repo.CountByBrand(brandID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestTaskHistoryRepository_OrderAndIDs(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewTaskHistoryRepository(db)

	base := time.Now()
	for i, action := range []models.TaskAction{models.TaskActionStatusChanged, models.TaskActionApprovalGranted} {
		require.NoError(t, repo.Append(&models.TaskHistory{
			TaskID:      1,
			Action:      action,
			Description: string(action),
			Timestamp:   base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := repo.ListByTask(1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.TaskActionApprovalGranted, entries[0].Action)

	ids, err := repo.IDsByTask(1)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Less(t, ids[0], ids[1])
}

func TestBrandRepository_DeleteCascade(t *testing.T) {
	db := setupRepositoryTestDB(t)
	brands := NewBrandRepository(db)
	tasks := NewTaskRepository(db)
	comments := NewCommentRepository(db)
	history := NewTaskHistoryRepository(db)

	brand := &models.Brand{Name: "Acme", OwnerID: 1, Status: models.BrandStatusActive, Category: "Other"}
	require.NoError(t, brands.Create(brand))

	task := seedTask(t, tasks, "a@example.com", "boss@example.com", &brand.ID)
	other := seedTask(t, tasks, "a@example.com", "boss@example.com", nil)
	require.NoError(t, comments.Create(&models.Comment{TaskID: task.ID, Content: "hello"}))
	require.NoError(t, history.Append(&models.TaskHistory{TaskID: task.ID, Action: models.TaskActionStatusChanged, Description: "x", Timestamp: time.Now()}))

	found, err := brands.FindByNaturalKey(1, "Acme", "")
	require.NoError(t, err)
	assert.Equal(t, brand.ID, found.ID)

	require.NoError(t, brands.Delete(brand.ID, true))

	_, err = brands.FindByID(brand.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = tasks.FindByID(task.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = tasks.FindByID(other.ID)
	assert.NoError(t, err)

	commentIDs, err := comments.IDsByTask(task.ID)
	require.NoError(t, err)
	assert.Empty(t, commentIDs)
	historyIDs, err := history.IDsByTask(task.ID)
	require.NoError(t, err)
	assert.Empty(t, historyIDs)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, repo.Create(user))

	found, err := repo.FindByEmail("ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	require.NoError(t, repo.Delete(user.ID))
	_, err = repo.FindByEmail("ana@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
