package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// IsValid reports whether r is a known role.
func (r UserRole) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           uint64   `gorm:"primarykey" json:"id"`
	Name         string   `gorm:"type:varchar(255);not null" json:"name"`
	Email        string   `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string   `gorm:"type:varchar(255);not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null;default:'user'" json:"role"`

	// Password reset state. ResetOTP is one-shot and only meaningful while OTPExpiry is in the future.
	ResetOTP           *int       `json:"-"`
	OTPExpiry          *time.Time `json:"-"`
	OTPAttempts        int        `gorm:"not null;default:0" json:"-"`
	OTPAttemptsExpiry  *time.Time `json:"-"`
	ResetVerifiedUntil *time.Time `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
