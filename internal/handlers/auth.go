package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/brand-task-api/internal/constants"
	"github.com/yukikurage/brand-task-api/internal/dto"
	apierrors "github.com/yukikurage/brand-task-api/internal/errors"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register creates an account and signs the user in.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Register(services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.startSession(c, user, http.StatusCreated, "User registered successfully")
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.startSession(c, user, http.StatusOK, "Login successful")
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User, status int, message string) {
	token, err := h.authService.IssueToken(user)
	if err != nil {
		respondInternal(c, "Failed to issue token", err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		respondInternal(c, "Failed to save session", err)
		return
	}

	c.JSON(status, dto.OKWithMessage(message, dto.AuthDTO{
		User:  dto.ToUserDTO(*user),
		Token: token,
	}))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("Logged out successfully", nil))
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(identity.ID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToUserDTO(*user)))
}

// ForgetPassword mails a one-time reset code.
func (h *AuthHandler) ForgetPassword(c *gin.Context) {
	type ForgetPasswordRequest struct {
		Email string `json:"email" binding:"required"`
	}

	var req ForgetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.authService.ForgetPassword(c.Request.Context(), req.Email); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("OTP sent to your email", nil))
}

// VerifyOTP checks a reset code.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	type VerifyOTPRequest struct {
		Email string `json:"email" binding:"required"`
		OTP   int    `json:"otp" binding:"required"`
	}

	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.authService.VerifyOTP(req.Email, req.OTP); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("OTP verified successfully", nil))
}

// ChangePassword sets a new password after OTP verification.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	type ChangePasswordRequest struct {
		Email       string `json:"email" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.authService.ChangePassword(req.Email, req.NewPassword); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("Password changed successfully", nil))
}
