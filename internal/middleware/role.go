package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that enforces that the authenticated
// caller holds one of the given roles. The role is read from the context key
// populated by SessionAuth; a missing or unknown role is rejected the same
// way as a disallowed one.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return reject(c, http.StatusForbidden, "insufficient role", ReasonForbidden)
			}
			return next(c)
		}
	}
}
