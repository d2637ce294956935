package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-order-platform/internal/model"
)

// CtxTenantID holds the effective restaurant id (uint64) for the request
// after RequireTenant has admitted it.
const CtxTenantID = "tenant_id"

// PrincipalLoader is the slice of the user repository the tenant gate needs.
type PrincipalLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// RequireTenant enforces tenant scoping on routes of the form
// /v1/restaurants/:id/... — the target restaurant in the path must be the
// caller's own tenant. DEVELOPER bypasses the check and may act on any
// tenant. The caller's tenant binding is read from the database on every
// request rather than from token claims, so role or tenant edits take effect
// without waiting for the session to expire.
func RequireTenant(users PrincipalLoader, storeTimeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			target, err := strconv.ParseUint(c.Param("id"), 10, 64)
			if err != nil || target == 0 {
				return c.JSON(http.StatusBadRequest, echo.Map{
					"success": false, "message": "invalid restaurant id", "error": "BAD_REQUEST",
				})
			}

			role, _ := c.Get(CtxRole).(string)
			if role == model.RoleDeveloper {
				c.Set(CtxTenantID, target)
				return next(c)
			}

			pid, ok := c.Get(CtxPrincipalID).(uint64)
			if !ok {
				return reject(c, http.StatusForbidden, "tenant scope unresolved", ReasonForbidden)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
			defer cancel()
			u, err := users.GetByID(ctx, pid)
			if err != nil {
				// A principal that no longer exists holds no tenant;
				// deny rather than guess.
				return reject(c, http.StatusForbidden, "tenant scope unresolved", ReasonForbidden)
			}
			if u.RestaurantID == nil || *u.RestaurantID != target {
				return reject(c, http.StatusForbidden, "resource belongs to another tenant", ReasonForbidden)
			}
			c.Set(CtxTenantID, target)
			return next(c)
		}
	}
}
