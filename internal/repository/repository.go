package repository

import (
	"github.com/yukikurage/brand-task-api/internal/models"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID
	FindByID(id uint64) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// ListByBrand returns every task attached to a brand
	ListByBrand(brandID uint64) ([]models.Task, error)

	// CountByBrand counts tasks attached to a brand
	CountByBrand(brandID uint64) (int64, error)

	// UpdateFields applies a partial update in a single statement
	UpdateFields(id uint64, fields map[string]any) error

	// Delete removes a task together with its comments and history
	Delete(id uint64) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	// ParticipantEmail restricts results to tasks assigned to or by this email.
	// Empty means no restriction (admin view).
	ParticipantEmail string
	Status           *models.TaskStatus
	Priority         *models.TaskPriority
	BrandID          *uint64
	Page             int
	PageSize         int
}

// TaskHistoryRepository is the append-only task audit log
type TaskHistoryRepository interface {
	// Append persists a single history row
	Append(entry *models.TaskHistory) error

	// ListByTask returns history newest first
	ListByTask(taskID uint64) ([]models.TaskHistory, error)

	// IDsByTask returns history ids in insertion order
	IDsByTask(taskID uint64) ([]uint64, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(comment *models.Comment) error
	FindByID(id uint64) (*models.Comment, error)
	ListByTask(taskID uint64) ([]models.Comment, error)
	IDsByTask(taskID uint64) ([]uint64, error)
	Delete(id uint64) error
}

// BrandRepository defines the interface for brand data access
type BrandRepository interface {
	// Create creates a new brand
	Create(brand *models.Brand) error

	// FindByID finds a brand by ID
	FindByID(id uint64) (*models.Brand, error)

	// FindByNaturalKey finds the brand identified by (owner, name, company)
	FindByNaturalKey(ownerID uint64, name, company string) (*models.Brand, error)

	// List retrieves brands matching the filter
	List(filter BrandFilter) ([]models.Brand, error)

	// Modify runs a read-modify-write of the brand row inside one transaction.
	// Collaborators and history are embedded in the row, so concurrent edits
	// must go through here to avoid lost updates. fn receives a repository
	// bound to the transaction.
	Modify(id uint64, fn func(tx BrandRepository, brand *models.Brand) error) (*models.Brand, error)

	// Delete removes a brand; when cascade is set its tasks, their comments and
	// their history are removed in the same transaction
	Delete(id uint64, cascade bool) error
}

// BrandFilter holds filtering options for listing brands
type BrandFilter struct {
	Search  string
	Status  *models.BrandStatus
	Company string
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by normalized email
	FindByEmail(email string) (*models.User, error)

	// List returns all users ordered by creation
	List() ([]models.User, error)

	// Save persists every column of the user
	Save(user *models.User) error

	// Delete soft deletes a user
	Delete(id uint64) error
}
