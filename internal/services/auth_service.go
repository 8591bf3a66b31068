package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/yukikurage/brand-task-api/internal/constants"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/repository"
	"github.com/yukikurage/brand-task-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized         = errors.New("authentication required")
	ErrNameRequired         = errors.New("name is required")
	ErrEmailRequired        = errors.New("email is required")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrInvalidRole          = errors.New("invalid role")
	ErrCannotDeleteSelf     = errors.New("admins cannot delete their own account")
	ErrTooManyOTPRequests   = errors.New("too many OTP requests, try again later")
	ErrNoOTPRequested       = errors.New("no OTP requested")
	ErrOTPExpired           = errors.New("OTP expired")
	ErrInvalidOTP           = errors.New("invalid OTP")
	ErrResetNotVerified     = errors.New("OTP verification required before changing password")
)

// AuthOptions configures token issuance and role bootstrap.
type AuthOptions struct {
	JWTSecret   string
	JWTExpiry   time.Duration
	AdminEmails []string
}

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo    repository.UserRepository
	mailer      Mailer
	jwtSecret   []byte
	jwtExpiry   time.Duration
	adminEmails []string
	now         func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, mailer Mailer, opts AuthOptions) *AuthService {
	if mailer == nil {
		mailer = LogMailer{}
	}
	if opts.JWTExpiry <= 0 {
		opts.JWTExpiry = 24 * time.Hour
	}
	return &AuthService{
		userRepo:    userRepo,
		mailer:      mailer,
		jwtSecret:   []byte(opts.JWTSecret),
		jwtExpiry:   opts.JWTExpiry,
		adminEmails: opts.AdminEmails,
		now:         time.Now,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a new user. Addresses listed in AdminEmails become admins.
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	role := models.RoleUser
	if slices.Contains(s.adminEmails, utils.NormalizeEmail(input.Email)) {
		role = models.RoleAdmin
	}
	return s.createUser(input.Name, input.Email, input.Password, role)
}

func (s *AuthService) createUser(name, email, password string, role models.UserRole) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = utils.NormalizeEmail(email)
	if name == "" {
		return nil, ErrNameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(utils.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// ResolveIdentity loads the current identity for a user id. A deleted or
// unknown user is treated as unauthenticated.
func (s *AuthService) ResolveIdentity(id uint64) (*models.Identity, error) {
	user, err := s.GetUser(id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return models.IdentityFromUser(user), nil
}

func (s *AuthService) findByEmail(email string) (*models.User, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ForgetPassword issues a one-time code and mails it. Requests are limited to
// OTPMaxRequests per fixed OTPRequestWindow stored on the user.
func (s *AuthService) ForgetPassword(ctx context.Context, email string) error {
	user, err := s.findByEmail(email)
	if err != nil {
		return err
	}

	now := s.now()
	if user.OTPAttemptsExpiry == nil || !now.Before(*user.OTPAttemptsExpiry) {
		windowEnd := now.Add(constants.OTPRequestWindow)
		user.OTPAttempts = 0
		user.OTPAttemptsExpiry = &windowEnd
	}
	if user.OTPAttempts >= constants.OTPMaxRequests {
		return ErrTooManyOTPRequests
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}
	expiry := now.Add(constants.OTPValidity)
	user.OTPAttempts++
	user.ResetOTP = &otp
	user.OTPExpiry = &expiry

	if err := s.userRepo.Save(user); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, user.Email, user.Name, otp); err != nil {
		slog.Error("failed to send OTP email", "user_id", user.ID, "error", err.Error())
	}
	return nil
}

// VerifyOTP consumes the pending code and opens the password reset window.
func (s *AuthService) VerifyOTP(email string, otp int) error {
	user, err := s.findByEmail(email)
	if err != nil {
		return err
	}

	if user.ResetOTP == nil || user.OTPExpiry == nil {
		return ErrNoOTPRequested
	}

	now := s.now()
	if now.After(*user.OTPExpiry) {
		user.ResetOTP = nil
		user.OTPExpiry = nil
		if err := s.userRepo.Save(user); err != nil {
			return fmt.Errorf("failed to clear expired OTP: %w", err)
		}
		return ErrOTPExpired
	}

	if *user.ResetOTP != otp {
		return ErrInvalidOTP
	}

	verifiedUntil := now.Add(constants.PasswordResetWindow)
	user.ResetOTP = nil
	user.OTPExpiry = nil
	user.ResetVerifiedUntil = &verifiedUntil
	if err := s.userRepo.Save(user); err != nil {
		return fmt.Errorf("failed to consume OTP: %w", err)
	}
	return nil
}

// ChangePassword sets a new password inside the window opened by VerifyOTP.
func (s *AuthService) ChangePassword(email, newPassword string) error {
	if len(newPassword) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.findByEmail(email)
	if err != nil {
		return err
	}

	if user.ResetVerifiedUntil == nil || s.now().After(*user.ResetVerifiedUntil) {
		return ErrResetNotVerified
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrFailedToHashPassword
	}
	user.PasswordHash = string(hashedPassword)
	user.ResetVerifiedUntil = nil

	if err := s.userRepo.Save(user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
