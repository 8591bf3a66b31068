package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/brand-task-api/internal/constants"
	apierrors "github.com/yukikurage/brand-task-api/internal/errors"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/services"
)

// RequireBrandAccess loads the brand named by the :id parameter for callers
// that own it, collaborate on it, or are admins.
func RequireBrandAccess(brandService *services.BrandService) gin.HandlerFunc {
	return func(c *gin.Context) {
		brandID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid brand ID")
			return
		}

		identity, ok := GetIdentity(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		brand, err := brandService.GetBrand(brandID, identity)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrBrandNotFound):
				apierrors.NotFound(c, "Brand not found")
			case errors.Is(err, services.ErrBrandForbidden):
				apierrors.Forbidden(c, err.Error())
			default:
				apierrors.InternalErrorWithCause(c, "Failed to load brand", err)
			}
			return
		}

		c.Set(constants.ContextKeyBrand, brand)
		c.Next()
	}
}

// GetBrand retrieves the brand loaded by RequireBrandAccess
func GetBrand(c *gin.Context) (*models.Brand, bool) {
	v, exists := c.Get(constants.ContextKeyBrand)
	if !exists {
		return nil, false
	}
	brand, ok := v.(*models.Brand)
	return brand, ok
}
