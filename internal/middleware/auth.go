package middleware

import (
	"errors"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/brand-task-api/internal/constants"
	apierrors "github.com/yukikurage/brand-task-api/internal/errors"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/services"
)

// RequireAuth authenticates the request with a Bearer token or, failing
// that, the session cookie, and attaches the resolved identity.
func RequireAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := bearerUserID(c, authService)
		if !ok {
			session := sessions.Default(c)
			userID, ok = toUint64(session.Get(constants.ContextKeyUserID))
		}
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		identity, err := authService.ResolveIdentity(userID)
		if err != nil {
			if errors.Is(err, services.ErrUnauthorized) {
				apierrors.Unauthorized(c, "")
				return
			}
			apierrors.InternalErrorWithCause(c, "Failed to resolve user", err)
			return
		}

		c.Set(constants.ContextKeyUserID, identity.ID)
		c.Set(constants.ContextKeyIdentity, identity)
		c.Next()
	}
}

func bearerUserID(c *gin.Context, authService *services.AuthService) (uint64, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return 0, false
	}
	claims, err := authService.ParseToken(strings.TrimSpace(token))
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}
		if !identity.IsAdmin() {
			apierrors.Forbidden(c, "Admin access required")
			return
		}
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

// GetIdentity retrieves the acting identity from context
func GetIdentity(c *gin.Context) (*models.Identity, bool) {
	v, exists := c.Get(constants.ContextKeyIdentity)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*models.Identity)
	return identity, ok && identity != nil
}

func toUint64(v any) (uint64, bool) {
	switch v := v.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
