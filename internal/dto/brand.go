package dto

import (
	"time"

	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/services"
)

// BrandDTO represents a brand in API responses
type BrandDTO struct {
	ID            uint64                     `json:"id"`
	Name          string                     `json:"name"`
	Company       string                     `json:"company"`
	Description   string                     `json:"description"`
	Category      string                     `json:"category"`
	Website       string                     `json:"website"`
	Logo          string                     `json:"logo"`
	Status        models.BrandStatus         `json:"status"`
	OwnerID       uint64                     `json:"owner_id"`
	Collaborators []models.Collaborator      `json:"collaborators"`
	History       []models.BrandHistoryEntry `json:"history"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// BrandStatsDTO summarizes brand tasks and collaborators
type BrandStatsDTO struct {
	TotalTasks          int `json:"total_tasks"`
	CompletedTasks      int `json:"completed_tasks"`
	PendingTasks        int `json:"pending_tasks"`
	InProgressTasks     int `json:"in_progress_tasks"`
	OverdueTasks        int `json:"overdue_tasks"`
	TotalCollaborators  int `json:"total_collaborators"`
	ActiveCollaborators int `json:"active_collaborators"`
	PendingInvites      int `json:"pending_invites"`
}

// BrandDetailDTO is a brand with its tasks and statistics
type BrandDetailDTO struct {
	BrandDTO
	Tasks []TaskDTO     `json:"tasks"`
	Stats BrandStatsDTO `json:"stats"`
}

// BulkUpsertResultDTO reports one item of a bulk upsert
type BulkUpsertResultDTO struct {
	ClientID string    `json:"client_id,omitempty"`
	Created  bool      `json:"created"`
	Brand    *BrandDTO `json:"brand,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// ToBrandDTO converts a Brand model to BrandDTO
func ToBrandDTO(brand models.Brand) BrandDTO {
	collaborators := []models.Collaborator(brand.Collaborators)
	if collaborators == nil {
		collaborators = []models.Collaborator{}
	}
	history := []models.BrandHistoryEntry(brand.History)
	if history == nil {
		history = []models.BrandHistoryEntry{}
	}

	return BrandDTO{
		ID:            brand.ID,
		Name:          brand.Name,
		Company:       brand.Company,
		Description:   brand.Description,
		Category:      brand.Category,
		Website:       brand.Website,
		Logo:          brand.Logo,
		Status:        brand.Status,
		OwnerID:       brand.OwnerID,
		Collaborators: collaborators,
		History:       history,
		CreatedAt:     brand.CreatedAt,
		UpdatedAt:     brand.UpdatedAt,
	}
}

// ToBrandDTOs converts brands
func ToBrandDTOs(brands []models.Brand) []BrandDTO {
	out := make([]BrandDTO, len(brands))
	for i, brand := range brands {
		out[i] = ToBrandDTO(brand)
	}
	return out
}

// ToBrandDetailDTO converts brand details
func ToBrandDetailDTO(details *services.BrandDetails, now time.Time) BrandDetailDTO {
	s := details.Stats
	return BrandDetailDTO{
		BrandDTO: ToBrandDTO(*details.Brand),
		Tasks:    ToTaskDTOs(details.Tasks, now),
		Stats: BrandStatsDTO{
			TotalTasks:          s.TotalTasks,
			CompletedTasks:      s.CompletedTasks,
			PendingTasks:        s.PendingTasks,
			InProgressTasks:     s.InProgressTasks,
			OverdueTasks:        s.OverdueTasks,
			TotalCollaborators:  s.TotalCollaborators,
			ActiveCollaborators: s.ActiveCollaborators,
			PendingInvites:      s.PendingInvites,
		},
	}
}

// ToBulkUpsertResultDTOs converts bulk results
func ToBulkUpsertResultDTOs(results []services.BulkUpsertResult) []BulkUpsertResultDTO {
	out := make([]BulkUpsertResultDTO, len(results))
	for i, r := range results {
		out[i] = BulkUpsertResultDTO{
			ClientID: r.ClientID,
			Created:  r.Created,
			Error:    r.Error,
		}
		if r.Brand != nil {
			b := ToBrandDTO(*r.Brand)
			out[i].Brand = &b
		}
	}
	return out
}
