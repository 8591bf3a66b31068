package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/brand-task-api/internal/database"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type serviceTestEnv struct {
	db          *gorm.DB
	userRepo    repository.UserRepository
	brandRepo   repository.BrandRepository
	taskRepo    repository.TaskRepository
	historyRepo repository.TaskHistoryRepository
	commentRepo repository.CommentRepository
	brands      *BrandService
	tasks       *TaskService
	comments    *CommentService
}

func setupServiceTestEnv(t *testing.T) serviceTestEnv {
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

	env := serviceTestEnv{
		db:          db,
		userRepo:    repository.NewUserRepository(db),
		brandRepo:   repository.NewBrandRepository(db),
		taskRepo:    repository.NewTaskRepository(db),
		historyRepo: repository.NewTaskHistoryRepository(db),
		commentRepo: repository.NewCommentRepository(db),
	}
	env.brands = NewBrandService(env.brandRepo, env.userRepo, env.taskRepo)
	env.tasks = NewTaskService(env.taskRepo, env.commentRepo, env.historyRepo, env.userRepo, env.brandRepo,
		NewAuditRecorder(env.historyRepo), nil)
	env.comments = NewCommentService(env.commentRepo, env.tasks)

	return env
}

func (env serviceTestEnv) createUser(t *testing.T, name, email string, role models.UserRole) *models.Identity {
	t.Helper()
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	require.NoError(t, env.db.Create(user).Error)
	return models.IdentityFromUser(user)
}

func (env serviceTestEnv) createTask(t *testing.T, assigner *models.Identity, assignee string, brandID *uint64) *models.Task {
	t.Helper()
	due := time.Now().Add(48 * time.Hour)
	task, err := env.tasks.CreateTask(CreateTaskInput{
		Title:      "Prepare launch deck",
		AssignedTo: assignee,
		DueDate:    &due,
		BrandID:    brandID,
	}, assigner)
	require.NoError(t, err)
	return task
}

// failingHistoryRepository simulates a broken history store.
type failingHistoryRepository struct {
	repository.TaskHistoryRepository
	appendErr error
	appends   int
}

func (r *failingHistoryRepository) Append(entry *models.TaskHistory) error {
	r.appends++
	return r.appendErr
}

var errHistoryStoreDown = errors.New("history store unavailable")
