package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/brand-task-api/internal/constants"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateUserInput is used by admins to provision accounts.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     models.UserRole
}

// UpdateUserInput carries optional changes to a user.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *models.UserRole
}

// ListUsers returns every user.
func (s *AuthService) ListUsers() ([]models.User, error) {
	users, err := s.userRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateUser provisions a user with an explicit role.
func (s *AuthService) CreateUser(input CreateUserInput) (*models.User, error) {
	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	return s.createUser(input.Name, input.Email, input.Password, role)
}

// UpdateUser applies the provided fields.
func (s *AuthService) UpdateUser(id uint64, input UpdateUserInput) (*models.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		user.Name = name
	}
	if input.Email != nil {
		email := utils.NormalizeEmail(*input.Email)
		if email == "" {
			return nil, ErrEmailRequired
		}
		if email != user.Email {
			if _, err := s.userRepo.FindByEmail(email); err == nil {
				return nil, ErrEmailTaken
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			user.Email = email
		}
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, ErrInvalidRole
		}
		user.Role = *input.Role
	}
	if input.Password != nil {
		if len(*input.Password) < constants.MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, ErrFailedToHashPassword
		}
		user.PasswordHash = string(hashedPassword)
	}

	if err := s.userRepo.Save(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user. Admins cannot remove themselves.
func (s *AuthService) DeleteUser(id uint64, actor *models.Identity) error {
	if actor != nil && actor.ID == id {
		return ErrCannotDeleteSelf
	}
	if _, err := s.GetUser(id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
