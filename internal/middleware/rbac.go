package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
	"github.com/noah-isme/prefect-api/pkg/response"
)

// SelfRole lets a caller through when the :id route parameter is their own id.
const SelfRole = "SELF"

// RBAC enforces role-based access control for routes. A caller passes when
// any of their roles is allowed.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	roles := make([]models.UserRole, 0, len(allowed))
	for _, a := range allowed {
		if a == SelfRole {
			allowSelf = true
			continue
		}
		roles = append(roles, models.UserRole(a))
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}

		if claims.Roles.HasAny(roles...) {
			c.Next()
			return
		}

		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Abort(c, appErrors.ErrForbidden)
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
