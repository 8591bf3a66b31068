package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BrandStatus string

const (
	BrandStatusActive   BrandStatus = "active"
	BrandStatusInactive BrandStatus = "inactive"
	BrandStatusArchived BrandStatus = "archived"
)

func (s BrandStatus) IsValid() bool {
	switch s {
	case BrandStatusActive, BrandStatusInactive, BrandStatusArchived:
		return true
	}
	return false
}

type BrandAction string

const (
	BrandActionCreated                 BrandAction = "brand_created"
	BrandActionUpdated                 BrandAction = "brand_updated"
	BrandActionDeleted                 BrandAction = "brand_deleted"
	BrandActionCollaboratorInvited     BrandAction = "collaborator_invited"
	BrandActionCollaboratorAccepted    BrandAction = "collaborator_accepted"
	BrandActionCollaboratorDeclined    BrandAction = "collaborator_declined"
	BrandActionCollaboratorRemoved     BrandAction = "collaborator_removed"
	BrandActionCollaboratorRoleChanged BrandAction = "collaborator_role_changed"
)

// BrandHistoryEntry is appended to Brand.History and never modified afterwards.
type BrandHistoryEntry struct {
	Action      BrandAction       `json:"action"`
	Description string            `json:"description"`
	Actor       Actor             `json:"actor"`
	Timestamp   time.Time         `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type Brand struct {
	ID          uint64      `gorm:"primarykey" json:"id"`
	Name        string      `gorm:"type:varchar(255);not null;index:idx_brands_owner_name_company,priority:2" json:"name"`
	Company     string      `gorm:"type:varchar(255);not null;default:'';index:idx_brands_owner_name_company,priority:3" json:"company"`
	Description string      `gorm:"type:text" json:"description"`
	Category    string      `gorm:"type:varchar(100);not null;default:'Other'" json:"category"`
	Website     string      `gorm:"type:varchar(255)" json:"website"`
	Logo        string      `gorm:"type:text" json:"logo"`
	Status      BrandStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	OwnerID     uint64      `gorm:"not null;index:idx_brands_owner_name_company,priority:1" json:"owner_id"`

	Collaborators datatypes.JSONSlice[Collaborator]      `json:"collaborators"`
	History       datatypes.JSONSlice[BrandHistoryEntry] `json:"history"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FindCollaborator returns the index of the collaborator with the given
// normalized email, or -1.
func (b *Brand) FindCollaborator(email string) int {
	for i, c := range b.Collaborators {
		if c.Email == email {
			return i
		}
	}
	return -1
}

// AppendHistory adds an entry to the embedded brand log.
func (b *Brand) AppendHistory(entry BrandHistoryEntry) {
	b.History = append(b.History, entry)
}
