package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/brand-task-api/internal/dto"
	apierrors "github.com/yukikurage/brand-task-api/internal/errors"
	"github.com/yukikurage/brand-task-api/internal/middleware"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/repository"
	"github.com/yukikurage/brand-task-api/internal/services"
)

type BrandHandler struct {
	brandService *services.BrandService
}

func NewBrandHandler(brandService *services.BrandService) *BrandHandler {
	return &BrandHandler{brandService: brandService}
}

// BrandRequest is the JSON body for brand create and update
type BrandRequest struct {
	ClientID    string             `json:"client_id"`
	Name        string             `json:"name"`
	Company     string             `json:"company"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Website     string             `json:"website"`
	Logo        string             `json:"logo"`
	Status      models.BrandStatus `json:"status"`
}

func (r BrandRequest) toInput() services.BrandInput {
	return services.BrandInput{
		ClientID:    r.ClientID,
		Name:        r.Name,
		Company:     r.Company,
		Description: r.Description,
		Category:    r.Category,
		Website:     r.Website,
		Logo:        r.Logo,
		Status:      r.Status,
	}
}

func parseBrandID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid brand ID")
		return 0, false
	}
	return id, true
}

// ListBrands returns the brands visible to the caller
func (h *BrandHandler) ListBrands(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	filter := repository.BrandFilter{
		Search:  c.Query("search"),
		Company: c.Query("company"),
	}
	if s := c.Query("status"); s != "" {
		status := models.BrandStatus(s)
		if !status.IsValid() {
			apierrors.BadRequest(c, services.ErrInvalidBrandStatus.Error())
			return
		}
		filter.Status = &status
	}

	brands, err := h.brandService.ListBrands(identity, filter)
	if err != nil {
		respondBrandError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.ToBrandDTOs(brands)))
}

// CreateOrUpdateBrand upserts by owner, name and company
func (h *BrandHandler) CreateOrUpdateBrand(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req BrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.brandService.CreateOrUpdateBrand(req.toInput(), identity)
	if err != nil {
		respondBrandError(c, err)
		return
	}

	if result.Created {
		c.JSON(http.StatusCreated, dto.OKWithMessage("Brand created successfully", dto.ToBrandDTO(*result.Brand)))
		return
	}
	c.JSON(http.StatusOK, dto.OKWithMessage("Brand updated successfully", dto.ToBrandDTO(*result.Brand)))
}

// BulkUpsertBrands upserts several brands; failures are reported per item
func (h *BrandHandler) BulkUpsertBrands(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req struct {
		Brands []BrandRequest `json:"brands"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	items := make([]services.BrandInput, len(req.Brands))
	for i, b := range req.Brands {
		items[i] = b.toInput()
	}

	results, err := h.brandService.BulkUpsert(items, identity)
	if err != nil {
		respondBrandError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.ToBulkUpsertResultDTOs(results)))
}

// GetBrand returns a brand with its tasks and statistics.
// The brand is loaded by RequireBrandAccess.
func (h *BrandHandler) GetBrand(c *gin.Context) {
	brand, ok := middleware.GetBrand(c)
	if !ok {
		apierrors.InternalError(c, "Brand not found in context")
		return
	}

	details, err := h.brandService.Details(brand)
	if err != nil {
		respondBrandError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.ToBrandDetailDTO(details, time.Now())))
}

func (h *BrandHandler) UpdateBrand(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	brandID, ok := parseBrandID(c)
	if !ok {
		return
	}

	var req BrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	brand, err := h.brandService.UpdateBrand(brandID, req.toInput(), identity)
	if err != nil {
		respondBrandError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKWithMessage("Brand updated successfully", dto.ToBrandDTO(*brand)))
}

// DeleteBrand deletes a brand; ?force=true also deletes its tasks
func (h *BrandHandler) DeleteBrand(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	brandID, ok := parseBrandID(c)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	deleted, err := h.brandService.DeleteBrand(brandID, identity, force)
	if err != nil {
		respondBrandError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKWithMessage("Brand deleted successfully", gin.H{"deleted_tasks": deleted}))
}

func (h *BrandHandler) InviteCollaborator(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	brandID, ok := parseBrandID(c)
	if !ok {
		return
	}

	var req struct {
		Email   string                  `json:"email" binding:"required"`
		Role    models.CollaboratorRole `json:"role"`
		Message string                  `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	brand, err := h.brandService.InviteCollaborator(brandID, services.InviteInput{
		Email:   req.Email,
		Role:    req.Role,
		Message: req.Message,
	}, identity)
	if err != nil {
		respondBrandError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.OKWithMessage("Invitation sent successfully", dto.ToBrandDTO(*brand)))
}

// RespondToInvite accepts or declines the caller's pending invitation
func (h *BrandHandler) RespondToInvite(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	brandID, ok := parseBrandID(c)
	if !ok {
		return
	}

	var req struct {
		Action services.InviteAction `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	brand, err := h.brandService.RespondToInvite(brandID, req.Action, identity)
	if err != nil {
		respondBrandError(c, err)
		return
	}
	message := "Invitation accepted"
	if req.Action == services.InviteActionDecline {
		message = "Invitation declined"
	}
	c.JSON(http.StatusOK, dto.OKWithMessage(message, dto.ToBrandDTO(*brand)))
}

func (h *BrandHandler) RemoveCollaborator(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	brandID, ok := parseBrandID(c)
	if !ok {
		return
	}

	brand, err := h.brandService.RemoveCollaborator(brandID, c.Param("email"), identity)
	if err != nil {
		respondBrandError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKWithMessage("Collaborator removed successfully", dto.ToBrandDTO(*brand)))
}

func (h *BrandHandler) ChangeCollaboratorRole(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	brandID, ok := parseBrandID(c)
	if !ok {
		return
	}

	var req struct {
		Role models.CollaboratorRole `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	brand, err := h.brandService.ChangeCollaboratorRole(brandID, c.Param("email"), req.Role, identity)
	if err != nil {
		respondBrandError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKWithMessage("Collaborator role updated", dto.ToBrandDTO(*brand)))
}
