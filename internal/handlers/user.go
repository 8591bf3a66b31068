package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/brand-task-api/internal/dto"
	apierrors "github.com/yukikurage/brand-task-api/internal/errors"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/services"
)

// UserHandler exposes admin user management.
type UserHandler struct {
	authService *services.AuthService
}

func NewUserHandler(authService *services.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.authService.ListUsers()
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.ToUserDTOs(users)))
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	type CreateUserRequest struct {
		Name     string          `json:"name" binding:"required"`
		Email    string          `json:"email" binding:"required"`
		Password string          `json:"password" binding:"required"`
		Role     models.UserRole `json:"role"`
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.CreateUser(services.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.OKWithMessage("User created successfully", dto.ToUserDTO(*user)))
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	type UpdateUserRequest struct {
		Name     *string          `json:"name"`
		Email    *string          `json:"email"`
		Password *string          `json:"password"`
		Role     *models.UserRole `json:"role"`
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.UpdateUser(userID, services.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKWithMessage("User updated successfully", dto.ToUserDTO(*user)))
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.authService.DeleteUser(userID, identity); err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKWithMessage("User deleted successfully", nil))
}
