package models

import "strings"

// Identity is the authenticated principal acting on a brand or task.
type Identity struct {
	ID    uint64
	Name  string
	Email string
	Role  UserRole
}

func IdentityFromUser(user *User) *Identity {
	return &Identity{
		ID:    user.ID,
		Name:  user.Name,
		Email: strings.ToLower(strings.TrimSpace(user.Email)),
		Role:  user.Role,
	}
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Actor snapshots the identity for embedding in history and comments.
func (i *Identity) Actor() Actor {
	return Actor{
		UserID: i.ID,
		Name:   i.Name,
		Email:  i.Email,
		Role:   i.Role,
	}
}

// Actor is a denormalized copy of the user who performed an action.
type Actor struct {
	UserID uint64   `gorm:"index" json:"user_id"`
	Name   string   `gorm:"type:varchar(255)" json:"name"`
	Email  string   `gorm:"type:varchar(255)" json:"email"`
	Role   UserRole `gorm:"type:varchar(20)" json:"role"`
}
