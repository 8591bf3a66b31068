package models

import "time"

type CollaboratorRole string

const (
	CollaboratorRoleOwner  CollaboratorRole = "owner"
	CollaboratorRoleAdmin  CollaboratorRole = "admin"
	CollaboratorRoleMember CollaboratorRole = "member"
)

func (r CollaboratorRole) IsValid() bool {
	switch r {
	case CollaboratorRoleOwner, CollaboratorRoleAdmin, CollaboratorRoleMember:
		return true
	}
	return false
}

type CollaboratorStatus string

const (
	CollaboratorStatusPending  CollaboratorStatus = "pending"
	CollaboratorStatusAccepted CollaboratorStatus = "accepted"
	CollaboratorStatusDeclined CollaboratorStatus = "declined"
)

// Collaborator is embedded in Brand. UserID stays nil until an invitee
// registers or accepts.
type Collaborator struct {
	UserID    *uint64            `json:"user_id"`
	Email     string             `json:"email"`
	Name      string             `json:"name"`
	Role      CollaboratorRole   `json:"role"`
	Status    CollaboratorStatus `json:"status"`
	InvitedAt time.Time          `json:"invited_at"`
	JoinedAt  *time.Time         `json:"joined_at"`
	InvitedBy string             `json:"invited_by"`
}
