package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/yukikurage/brand-task-api/internal/constants"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/repository"
	"github.com/yukikurage/brand-task-api/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrBrandNotFound           = errors.New("brand not found")
	ErrBrandForbidden          = errors.New("you do not have permission to access this brand")
	ErrBrandNameRequired       = errors.New("brand name is required")
	ErrBrandExists             = errors.New("a brand with this name and company already exists")
	ErrInvalidBrandStatus      = errors.New("invalid brand status")
	ErrEmptyBulkPayload        = errors.New("brands array is required")
	ErrCollaboratorExists      = errors.New("user already invited/exists in collaborators")
	ErrCollaboratorNotFound    = errors.New("invitation not found")
	ErrInviteNotPending        = errors.New("invitation has already been responded to")
	ErrInvalidCollaboratorRole = errors.New("invalid collaborator role")
	ErrInvalidInviteAction     = errors.New("action must be accept or decline")
)

// DependentTasksError blocks a brand delete while tasks still reference it.
type DependentTasksError struct {
	Count int64
}

func (e *DependentTasksError) Error() string {
	return fmt.Sprintf("cannot delete brand with %d associated tasks. Use force=true to delete anyway", e.Count)
}

// BrandInput is the typed brand payload.
type BrandInput struct {
	ClientID    string
	Name        string
	Company     string
	Description string
	Category    string
	Website     string
	Logo        string
	Status      models.BrandStatus
}

// NormalizeBrandInput trims every field and applies defaults. The returned
// value is safe to persist.
func NormalizeBrandInput(in BrandInput) (BrandInput, error) {
	out := BrandInput{
		ClientID:    strings.TrimSpace(in.ClientID),
		Name:        strings.TrimSpace(in.Name),
		Company:     strings.TrimSpace(in.Company),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Website:     strings.TrimSpace(in.Website),
		Logo:        strings.TrimSpace(in.Logo),
		Status:      models.BrandStatus(strings.ToLower(strings.TrimSpace(string(in.Status)))),
	}

	if out.Name == "" {
		return out, ErrBrandNameRequired
	}
	if out.Category == "" {
		out.Category = constants.DefaultBrandCategory
	}
	if out.Status == "" {
		out.Status = models.BrandStatusActive
	}
	if !out.Status.IsValid() {
		return out, ErrInvalidBrandStatus
	}
	return out, nil
}

// BrandAccessible reports whether identity may read or use brand.
func BrandAccessible(brand *models.Brand, identity *models.Identity) bool {
	if identity == nil {
		return false
	}
	if identity.IsAdmin() || brand.OwnerID == identity.ID {
		return true
	}
	email := utils.NormalizeEmail(identity.Email)
	for _, c := range brand.Collaborators {
		if utils.NormalizeEmail(c.Email) == email && c.Status == models.CollaboratorStatusAccepted {
			return true
		}
	}
	return false
}

func canManageBrand(brand *models.Brand, identity *models.Identity) bool {
	return identity != nil && (identity.IsAdmin() || brand.OwnerID == identity.ID)
}

// BrandService owns brands, their collaborators and the embedded brand log.
type BrandService struct {
	brandRepo repository.BrandRepository
	userRepo  repository.UserRepository
	taskRepo  repository.TaskRepository
	now       func() time.Time
}

func NewBrandService(brandRepo repository.BrandRepository, userRepo repository.UserRepository, taskRepo repository.TaskRepository) *BrandService {
	return &BrandService{
		brandRepo: brandRepo,
		userRepo:  userRepo,
		taskRepo:  taskRepo,
		now:       time.Now,
	}
}

func (s *BrandService) historyEntry(action models.BrandAction, description string, identity *models.Identity, metadata map[string]string) models.BrandHistoryEntry {
	return models.BrandHistoryEntry{
		Action:      action,
		Description: description,
		Actor:       identity.Actor(),
		Timestamp:   s.now(),
		Metadata:    metadata,
	}
}

// UpsertResult reports whether the brand was created or updated.
type UpsertResult struct {
	Brand   *models.Brand
	Created bool
}

// CreateOrUpdateBrand upserts by (owner, name, company).
func (s *BrandService) CreateOrUpdateBrand(in BrandInput, identity *models.Identity) (*UpsertResult, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}
	normalized, err := NormalizeBrandInput(in)
	if err != nil {
		return nil, err
	}
	return s.upsert(normalized, identity, nil)
}

func (s *BrandService) upsert(in BrandInput, identity *models.Identity, extra map[string]string) (*UpsertResult, error) {
	metadata := map[string]string{"name": in.Name, "company": in.Company}
	for k, v := range extra {
		metadata[k] = v
	}

	existing, err := s.brandRepo.FindByNaturalKey(identity.ID, in.Name, in.Company)
	if err == nil {
		updated, err := s.mutateBrand(existing.ID, "update brand", func(_ repository.BrandRepository, brand *models.Brand) error {
			brand.Description = in.Description
			brand.Status = in.Status
			brand.AppendHistory(s.historyEntry(models.BrandActionUpdated, "Brand updated", identity, metadata))
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &UpsertResult{Brand: updated}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find brand: %w", err)
	}

	brand := &models.Brand{
		Name:          in.Name,
		Company:       in.Company,
		Description:   in.Description,
		Category:      in.Category,
		Website:       in.Website,
		Logo:          in.Logo,
		Status:        in.Status,
		OwnerID:       identity.ID,
		Collaborators: datatypes.JSONSlice[models.Collaborator]{},
		History: datatypes.JSONSlice[models.BrandHistoryEntry]{
			s.historyEntry(models.BrandActionCreated, "Brand created", identity, metadata),
		},
	}
	if err := s.brandRepo.Create(brand); err != nil {
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}
	return &UpsertResult{Brand: brand, Created: true}, nil
}

// BulkUpsertResult carries the caller's correlation id for every processed item.
type BulkUpsertResult struct {
	ClientID string
	Brand    *models.Brand
	Created  bool
	Error    string
}

// BulkUpsert applies the upsert per item. Items without a name are skipped;
// a failing item is reported in its result and does not stop the batch.
func (s *BrandService) BulkUpsert(items []BrandInput, identity *models.Identity) ([]BulkUpsertResult, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}
	if len(items) == 0 {
		return nil, ErrEmptyBulkPayload
	}

	results := make([]BulkUpsertResult, 0, len(items))
	for _, item := range items {
		normalized, err := NormalizeBrandInput(item)
		if errors.Is(err, ErrBrandNameRequired) {
			continue
		}
		result := BulkUpsertResult{ClientID: normalized.ClientID}
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		var extra map[string]string
		if normalized.ClientID != "" {
			extra = map[string]string{"clientId": normalized.ClientID}
		}
		upserted, err := s.upsert(normalized, identity, extra)
		if err != nil {
			slog.Error("bulk brand upsert item failed", "user_id", identity.ID, "client_id", normalized.ClientID, "error", err.Error())
			result.Error = err.Error()
		} else {
			result.Brand = upserted.Brand
			result.Created = upserted.Created
		}
		results = append(results, result)
	}

	return results, nil
}

// ListBrands returns the brands visible to identity.
func (s *BrandService) ListBrands(identity *models.Identity, filter repository.BrandFilter) ([]models.Brand, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}
	filter.Search = strings.TrimSpace(filter.Search)

	brands, err := s.brandRepo.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	if identity.IsAdmin() {
		return brands, nil
	}

	visible := make([]models.Brand, 0, len(brands))
	for i := range brands {
		if BrandAccessible(&brands[i], identity) {
			visible = append(visible, brands[i])
		}
	}
	return visible, nil
}

func (s *BrandService) findBrand(id uint64) (*models.Brand, error) {
	brand, err := s.brandRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBrandNotFound
		}
		return nil, fmt.Errorf("failed to find brand: %w", err)
	}
	return brand, nil
}

// mutateBrand applies fn to the locked brand row and saves the result. Errors
// from fn pass through; store failures are wrapped with action.
func (s *BrandService) mutateBrand(id uint64, action string, fn func(tx repository.BrandRepository, brand *models.Brand) error) (*models.Brand, error) {
	var fnErr error
	brand, err := s.brandRepo.Modify(id, func(tx repository.BrandRepository, brand *models.Brand) error {
		fnErr = fn(tx, brand)
		return fnErr
	})
	switch {
	case err == nil:
		return brand, nil
	case fnErr != nil:
		return nil, fnErr
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrBrandNotFound
	default:
		return nil, fmt.Errorf("failed to %s: %w", action, err)
	}
}

// mutateManagedBrand is mutateBrand for callers that must own the brand.
func (s *BrandService) mutateManagedBrand(id uint64, identity *models.Identity, action string, fn func(tx repository.BrandRepository, brand *models.Brand) error) (*models.Brand, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}
	return s.mutateBrand(id, action, func(tx repository.BrandRepository, brand *models.Brand) error {
		if !canManageBrand(brand, identity) {
			return ErrBrandForbidden
		}
		return fn(tx, brand)
	})
}

// GetBrand loads a brand the identity can access.
func (s *BrandService) GetBrand(id uint64, identity *models.Identity) (*models.Brand, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}
	brand, err := s.findBrand(id)
	if err != nil {
		return nil, err
	}
	if !BrandAccessible(brand, identity) {
		return nil, ErrBrandForbidden
	}
	return brand, nil
}

func (s *BrandService) getManagedBrand(id uint64, identity *models.Identity) (*models.Brand, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}
	brand, err := s.findBrand(id)
	if err != nil {
		return nil, err
	}
	if !canManageBrand(brand, identity) {
		return nil, ErrBrandForbidden
	}
	return brand, nil
}

// BrandStats summarizes the tasks and collaborators of a brand.
type BrandStats struct {
	TotalTasks          int
	CompletedTasks      int
	PendingTasks        int
	InProgressTasks     int
	OverdueTasks        int
	TotalCollaborators  int
	ActiveCollaborators int
	PendingInvites      int
}

// ComputeBrandStats derives statistics at now.
func ComputeBrandStats(brand *models.Brand, tasks []models.Task, now time.Time) BrandStats {
	stats := BrandStats{
		TotalTasks:         len(tasks),
		TotalCollaborators: len(brand.Collaborators),
	}
	for i := range tasks {
		switch tasks[i].Status {
		case models.TaskStatusCompleted:
			stats.CompletedTasks++
		case models.TaskStatusPending:
			stats.PendingTasks++
		case models.TaskStatusInProgress:
			stats.InProgressTasks++
		}
		if tasks[i].IsOverdue(now) {
			stats.OverdueTasks++
		}
	}
	for _, c := range brand.Collaborators {
		switch c.Status {
		case models.CollaboratorStatusAccepted:
			stats.ActiveCollaborators++
		case models.CollaboratorStatusPending:
			stats.PendingInvites++
		}
	}
	return stats
}

// BrandDetails is a brand with its tasks and statistics.
type BrandDetails struct {
	Brand *models.Brand
	Tasks []models.Task
	Stats BrandStats
}

// Details expands an already authorized brand.
func (s *BrandService) Details(brand *models.Brand) (*BrandDetails, error) {
	tasks, err := s.taskRepo.ListByBrand(brand.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list brand tasks: %w", err)
	}
	return &BrandDetails{
		Brand: brand,
		Tasks: tasks,
		Stats: ComputeBrandStats(brand, tasks, s.now()),
	}, nil
}

// GetBrandDetails loads and expands a brand.
func (s *BrandService) GetBrandDetails(id uint64, identity *models.Identity) (*BrandDetails, error) {
	brand, err := s.GetBrand(id, identity)
	if err != nil {
		return nil, err
	}
	return s.Details(brand)
}

// UpdateBrand overwrites fields that are non-empty after trimming.
func (s *BrandService) UpdateBrand(id uint64, in BrandInput, identity *models.Identity) (*models.Brand, error) {
	var status models.BrandStatus
	if in.Status != "" {
		status = models.BrandStatus(strings.ToLower(strings.TrimSpace(string(in.Status))))
		if !status.IsValid() {
			return nil, ErrInvalidBrandStatus
		}
	}

	return s.mutateManagedBrand(id, identity, "update brand", func(tx repository.BrandRepository, brand *models.Brand) error {
		name := strings.TrimSpace(in.Name)
		company := strings.TrimSpace(in.Company)
		if name != "" || company != "" {
			newName, newCompany := brand.Name, brand.Company
			if name != "" {
				newName = name
			}
			if company != "" {
				newCompany = company
			}
			if newName != brand.Name || newCompany != brand.Company {
				if _, err := tx.FindByNaturalKey(brand.OwnerID, newName, newCompany); err == nil {
					return ErrBrandExists
				} else if !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("failed to check brand name: %w", err)
				}
			}
			brand.Name, brand.Company = newName, newCompany
		}

		if v := strings.TrimSpace(in.Description); v != "" {
			brand.Description = v
		}
		if v := strings.TrimSpace(in.Category); v != "" {
			brand.Category = v
		}
		if v := strings.TrimSpace(in.Website); v != "" {
			brand.Website = v
		}
		if v := strings.TrimSpace(in.Logo); v != "" {
			brand.Logo = v
		}
		if status != "" {
			brand.Status = status
		}

		brand.AppendHistory(s.historyEntry(models.BrandActionUpdated, "Brand updated", identity,
			map[string]string{"name": brand.Name, "company": brand.Company}))
		return nil
	})
}

// InviteInput describes a collaborator invitation.
type InviteInput struct {
	Email   string
	Role    models.CollaboratorRole
	Message string
}

// InviteCollaborator adds a pending collaborator. The invitee does not need
// an account yet.
func (s *BrandService) InviteCollaborator(brandID uint64, in InviteInput, identity *models.Identity) (*models.Brand, error) {
	email := utils.NormalizeEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	role := in.Role
	if role == "" {
		role = models.CollaboratorRoleMember
	}
	if !role.IsValid() {
		return nil, ErrInvalidCollaboratorRole
	}
	if identity == nil {
		return nil, ErrUnauthorized
	}

	collaborator := models.Collaborator{
		Email:     email,
		Name:      utils.EmailLocalPart(email),
		Role:      role,
		Status:    models.CollaboratorStatusPending,
		InvitedAt: s.now(),
		InvitedBy: identity.Email,
	}
	user, err := s.userRepo.FindByEmail(email)
	switch {
	case err == nil:
		userID := user.ID
		collaborator.UserID = &userID
		collaborator.Name = user.Name
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to look up invitee: %w", err)
	}

	return s.mutateManagedBrand(brandID, identity, "save invitation", func(_ repository.BrandRepository, brand *models.Brand) error {
		if brand.FindCollaborator(email) >= 0 {
			return ErrCollaboratorExists
		}
		brand.Collaborators = append(brand.Collaborators, collaborator)
		brand.AppendHistory(s.historyEntry(models.BrandActionCollaboratorInvited,
			fmt.Sprintf("Invited %s as %s", email, role), identity,
			map[string]string{"email": email, "role": string(role), "message": strings.TrimSpace(in.Message)}))
		return nil
	})
}

// InviteAction is an invitee's answer to a pending invitation.
type InviteAction string

const (
	InviteActionAccept  InviteAction = "accept"
	InviteActionDecline InviteAction = "decline"
)

// RespondToInvite moves the caller's pending invitation to accepted or
// declined. Both outcomes are terminal.
func (s *BrandService) RespondToInvite(brandID uint64, action InviteAction, identity *models.Identity) (*models.Brand, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}
	if action != InviteActionAccept && action != InviteActionDecline {
		return nil, ErrInvalidInviteAction
	}

	email := utils.NormalizeEmail(identity.Email)
	return s.mutateBrand(brandID, "save invitation response", func(_ repository.BrandRepository, brand *models.Brand) error {
		idx := brand.FindCollaborator(email)
		if idx < 0 {
			return ErrCollaboratorNotFound
		}
		collaborator := &brand.Collaborators[idx]
		if collaborator.Status != models.CollaboratorStatusPending {
			return ErrInviteNotPending
		}

		historyAction := models.BrandActionCollaboratorDeclined
		description := fmt.Sprintf("%s declined the invitation", email)
		if action == InviteActionAccept {
			joinedAt := s.now()
			userID := identity.ID
			collaborator.Status = models.CollaboratorStatusAccepted
			collaborator.JoinedAt = &joinedAt
			collaborator.UserID = &userID
			if identity.Name != "" {
				collaborator.Name = identity.Name
			}
			historyAction = models.BrandActionCollaboratorAccepted
			description = fmt.Sprintf("%s accepted the invitation", email)
		} else {
			collaborator.Status = models.CollaboratorStatusDeclined
		}

		brand.AppendHistory(s.historyEntry(historyAction, description, identity,
			map[string]string{"email": email, "role": string(collaborator.Role)}))
		return nil
	})
}

// RemoveCollaborator drops a collaborator entry regardless of its status.
func (s *BrandService) RemoveCollaborator(brandID uint64, email string, identity *models.Identity) (*models.Brand, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	return s.mutateManagedBrand(brandID, identity, "remove collaborator", func(_ repository.BrandRepository, brand *models.Brand) error {
		idx := brand.FindCollaborator(email)
		if idx < 0 {
			return ErrCollaboratorNotFound
		}
		removed := brand.Collaborators[idx]
		brand.Collaborators = append(brand.Collaborators[:idx], brand.Collaborators[idx+1:]...)

		brand.AppendHistory(s.historyEntry(models.BrandActionCollaboratorRemoved,
			fmt.Sprintf("Removed %s from collaborators", email), identity,
			map[string]string{"email": email, "role": string(removed.Role), "status": string(removed.Status)}))
		return nil
	})
}

// ChangeCollaboratorRole updates the role of an existing collaborator.
func (s *BrandService) ChangeCollaboratorRole(brandID uint64, email string, role models.CollaboratorRole, identity *models.Identity) (*models.Brand, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !role.IsValid() {
		return nil, ErrInvalidCollaboratorRole
	}
	return s.mutateManagedBrand(brandID, identity, "change collaborator role", func(_ repository.BrandRepository, brand *models.Brand) error {
		idx := brand.FindCollaborator(email)
		if idx < 0 {
			return ErrCollaboratorNotFound
		}
		oldRole := brand.Collaborators[idx].Role
		brand.Collaborators[idx].Role = role

		brand.AppendHistory(s.historyEntry(models.BrandActionCollaboratorRoleChanged,
			fmt.Sprintf("Changed role of %s from %s to %s", email, oldRole, role), identity,
			map[string]string{"email": email, "old_role": string(oldRole), "new_role": string(role)}))
		return nil
	})
}

// DeleteBrand removes a brand. Dependent tasks block the delete unless force
// is set, in which case they are removed with their comments and history.
// It returns the number of tasks deleted.
func (s *BrandService) DeleteBrand(id uint64, identity *models.Identity, force bool) (int64, error) {
	if _, err := s.getManagedBrand(id, identity); err != nil {
		return 0, err
	}

	count, err := s.taskRepo.CountByBrand(id)
	if err != nil {
		return 0, fmt.Errorf("failed to count brand tasks: %w", err)
	}
	if count > 0 && !force {
		return 0, &DependentTasksError{Count: count}
	}

	if _, err := s.mutateBrand(id, "record brand deletion", func(_ repository.BrandRepository, brand *models.Brand) error {
		brand.AppendHistory(s.historyEntry(models.BrandActionDeleted, "Brand deleted", identity,
			map[string]string{
				"name":       brand.Name,
				"company":    brand.Company,
				"force":      strconv.FormatBool(force),
				"task_count": strconv.FormatInt(count, 10),
			}))
		return nil
	}); err != nil {
		return 0, err
	}

	if err := s.brandRepo.Delete(id, count > 0); err != nil {
		return 0, fmt.Errorf("failed to delete brand: %w", err)
	}
	return count, nil
}
